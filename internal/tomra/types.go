package tomra

import (
	"time"

	"github.com/google/uuid"
)

// SessionPage is one page of the consumer-sessions collection.
type SessionPage struct {
	Data []Datum `json:"data"`
	Next string  `json:"next,omitempty"`
}

// Datum wraps one consumer session together with where it happened.
type Datum struct {
	ConsumerSession ConsumerSession `json:"consumerSession"`
	Location        *Location       `json:"location,omitempty"`
	Rvm             *Rvm            `json:"rvm,omitempty"`
}

type ConsumerSession struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	ReceivedAt time.Time `json:"receivedAt"`
	Identity   *Identity `json:"identity,omitempty"`
	Metadata   *Metadata `json:"metadata,omitempty"`
	Items      []Item    `json:"items,omitempty"`
}

// Identity carries the code the consumer presented at the machine.
type Identity struct {
	ConsumerIdentity string `json:"consumerIdentity"`
}

type Metadata struct {
	ContentType string `json:"contentType,omitempty"`
	Content     string `json:"content,omitempty"`
}

type Location struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Rvm struct {
	SerialNumber string `json:"serialNumber"`
}

type Item struct {
	Barcode string `json:"barcode"`
	Count   int    `json:"count"`
}

// SessionResult is the fully paginated outcome of one collection query.
// CollectionURL is the first-page URL without the pagination cursor; it
// identifies the query for later idempotency checks.
type SessionResult struct {
	CollectionURL string
	Sessions      []Datum
}
