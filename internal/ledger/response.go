package ledger

import "time"

// EntryResponse is the public representation of a ledger entry.
type EntryResponse struct {
	ID            string    `json:"id"`
	UUID          string    `json:"uuid"`
	RecipientUUID string    `json:"recipientUuid,omitempty"`
	Activity      Activity  `json:"activity"`
	Sender        string    `json:"sender,omitempty"`
	Recipient     string    `json:"recipient,omitempty"`
	Amount        string    `json:"amount"`
	Ref           string    `json:"ref"`
	Channel       string    `json:"channel,omitempty"`
	Narration     string    `json:"narration,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ToResponse renders an entry with its amount fixed at two decimals.
func ToResponse(e Entry) EntryResponse {
	return EntryResponse{
		ID:            e.ID,
		UUID:          e.UUID,
		RecipientUUID: e.RecipientUUID,
		Activity:      e.Activity,
		Sender:        e.Sender,
		Recipient:     e.Recipient,
		Amount:        e.Amount.StringFixed(2),
		Ref:           e.Ref,
		Channel:       e.Channel,
		Narration:     e.Narration,
		Status:        string(e.Status),
		CreatedAt:     e.CreatedAt,
	}
}
