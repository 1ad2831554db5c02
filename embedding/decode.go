package embedding

import "encoding/json"

// Shape identifies which provider response layout carried the vector.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeGemini
	ShapeGeminiBatch
	ShapeOpenAI
	ShapeOllama
)

func (s Shape) String() string {
	switch s {
	case ShapeGemini:
		return "gemini"
	case ShapeGeminiBatch:
		return "gemini_batch"
	case ShapeOpenAI:
		return "openai"
	case ShapeOllama:
		return "ollama"
	default:
		return "unknown"
	}
}

type adapter struct {
	shape  Shape
	decode func(raw []byte) []float32
}

var adapters = []adapter{
	{ShapeGemini, decodeGemini},
	{ShapeGeminiBatch, decodeGeminiBatch},
	{ShapeOpenAI, decodeOpenAI},
	{ShapeOllama, decodeOllama},
}

// Decode extracts the first embedding from a provider response, trying each
// known layout in turn.
func Decode(raw []byte) ([]float32, Shape, error) {
	for _, a := range adapters {
		if vec := a.decode(raw); len(vec) > 0 {
			return vec, a.shape, nil
		}
	}

	return nil, ShapeUnknown, ErrUnrecognizedResponse
}

// {"embedding": {"values": [...]}}
func decodeGemini(raw []byte) []float32 {
	var out struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}

	return out.Embedding.Values
}

// {"embeddings": [{"values": [...]}]}
func decodeGeminiBatch(raw []byte) []float32 {
	var out struct {
		Embeddings []struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	}

	if err := json.Unmarshal(raw, &out); err != nil || len(out.Embeddings) == 0 {
		return nil
	}

	return out.Embeddings[0].Values
}

// {"data": [{"embedding": [...]}]}
func decodeOpenAI(raw []byte) []float32 {
	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}

	if err := json.Unmarshal(raw, &out); err != nil || len(out.Data) == 0 {
		return nil
	}

	return out.Data[0].Embedding
}

// {"embedding": [...]}
func decodeOllama(raw []byte) []float32 {
	var out struct {
		Embedding []float32 `json:"embedding"`
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}

	return out.Embedding
}
