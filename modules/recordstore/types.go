package recordstore

import "context"

// SelectRequest is the request for the select service. Replies are paged:
// Offset is the index into the matching records to start from and MaxBytes
// caps the encoded size of one page (DefaultSelectPageBytes when zero).
type SelectRequest struct {
	Table    string `json:"table"`
	Filter   Filter `json:"filter,omitempty"`
	Offset   int    `json:"offset,omitempty"`
	MaxBytes int    `json:"max_bytes,omitempty"`
}

// SelectResponse is one page of the select service.
type SelectResponse struct {
	Records    []Record `json:"records"`
	Total      int      `json:"total"`
	NextOffset int      `json:"next_offset"`
	More       bool     `json:"more"`
}

// InsertRequest is the request for the insert service.
type InsertRequest struct {
	Table  string `json:"table"`
	Record Record `json:"record"`
}

// InsertResponse is the response for the insert service.
type InsertResponse struct {
	Record Record `json:"record"`
}

// FindRequest is the request for the find service.
type FindRequest struct {
	Table string `json:"table"`
	ID    string `json:"id"`
}

// FindResponse is the response for the find service.
type FindResponse struct {
	Record Record `json:"record,omitempty"`
	Found  bool   `json:"found"`
}

// UpdateRequest is the request for the update service.
type UpdateRequest struct {
	Table  string `json:"table"`
	ID     string `json:"id"`
	Fields Record `json:"fields"`
}

// DeleteRequest is the request for the delete service.
type DeleteRequest struct {
	Table string `json:"table"`
	ID    string `json:"id"`
}

// MutationResponse reports whether an update or delete touched a record.
type MutationResponse struct {
	Affected bool `json:"affected"`
}

// Reader lists records. *Store implements it in-process.
type Reader interface {
	Select(ctx context.Context, table string, filter Filter) ([]Record, error)
}

// RecordPort defines the record operations available to other modules
// (hexagonal port). Both *Store and the service-container adapter implement it.
type RecordPort interface {
	Reader
	Insert(ctx context.Context, table string, record Record) (Record, error)
	Find(ctx context.Context, table, id string) (Record, bool, error)
	Update(ctx context.Context, table, id string, partial Record) (bool, error)
	Delete(ctx context.Context, table, id string) (bool, error)
}
