package types

// ChatIntent classifies a chatbot answer.
type ChatIntent string

const (
	IntentFarewell       ChatIntent = "farewell"
	IntentGreeting       ChatIntent = "greeting"
	IntentRecommendation ChatIntent = "recommendation"
	IntentCuriosity      ChatIntent = "curiosity"
	IntentSchedule       ChatIntent = "schedule"
	IntentPrice          ChatIntent = "price"
	IntentActivity       ChatIntent = "activity"
	IntentInfo           ChatIntent = "info"
	IntentNarrative      ChatIntent = "narrative"
	IntentOther          ChatIntent = "other"
)

type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=2000"`
	SessionID string `json:"sessionId,omitempty" validate:"omitempty,max=64"`
}

type ChatResponse struct {
	Type      ChatIntent `json:"type"`
	Answer    string     `json:"answer"`
	SessionID string     `json:"sessionId"`
}
