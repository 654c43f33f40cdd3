package model

// LLM names a model an experiment may drive its agents with.
type LLM struct {
	Model string
}

func NewLLM(model string) (*LLM, error) {
	if model == "" {
		return nil, NewValidationError("llm model name is empty")
	}
	return &LLM{Model: model}, nil
}

// LLMDocument is the persisted shape of an LLM spec.
type LLMDocument struct {
	Model string `bson:"model" json:"model"`
}

func (l *LLM) ToDocument() LLMDocument {
	return LLMDocument{Model: l.Model}
}

func LLMFromDocument(doc LLMDocument) (*LLM, error) {
	return NewLLM(doc.Model)
}
