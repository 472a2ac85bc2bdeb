package types

import "github.com/google/uuid"

type NarrativeInfo struct {
	PlaceID             uuid.UUID `json:"placeId"`
	PlaceName           string    `json:"placeName"`
	HasNarrative        bool      `json:"hasNarrative"`
	NarrativeStoreID    *string   `json:"narrativeStoreId,omitempty"`
	NarrativeDocumentID *string   `json:"narrativeDocumentId,omitempty"`
}

type NarrativeUploadResponse struct {
	PlaceID    uuid.UUID `json:"placeId"`
	PlaceName  string    `json:"placeName"`
	DocumentID string    `json:"documentId"`
}

type NarrationResponse struct {
	Text string `json:"text"`
}

type AskRequest struct {
	Prompt string `json:"prompt" validate:"required,max=4000"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

type AskWithNarrativeRequest struct {
	PlaceID  string `json:"placeId" validate:"required,uuid"`
	Question string `json:"question" validate:"required,max=2000"`
}

type PlaceRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type AskWithNarrativeResponse struct {
	Place    PlaceRef `json:"place"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
}

// RefreshReport summarises one narrative maintenance run.
type RefreshReport struct {
	Checked   int `json:"checked"`
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
}
