package batch

import "github.com/kailas-cloud/entidex/internal/domain/jsondoc"

// ItemStatus is the outcome of one write of a batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK      ItemStatus = "ok"
	StatusError   ItemStatus = "error"
	StatusSkipped ItemStatus = "skipped"
)

// Result is the outcome of the entity/index write pair of one item.
type Result struct {
	id        string
	indexID   string
	entity    *jsondoc.Object
	entityErr error
	indexErr  error
	skipped   bool
}

// NewResult records a finished write pair.
func NewResult(entity *jsondoc.Object, id, indexID string, entityErr, indexErr error) Result {
	return Result{id: id, indexID: indexID, entity: entity, entityErr: entityErr, indexErr: indexErr}
}

// NewRejected records an item that failed validation; neither write ran.
func NewRejected(id string, err error) Result {
	return Result{id: id, entityErr: err, indexErr: err}
}

// NewSkipped records an item whose writes were never issued.
func NewSkipped(id string, err error) Result {
	return Result{id: id, entityErr: err, indexErr: err, skipped: true}
}

// ID returns the entity id.
func (r Result) ID() string { return r.id }

// IndexID returns the id of the index document, if one was built.
func (r Result) IndexID() string { return r.indexID }

// Entity returns the entity as written, with its assigned id.
func (r Result) Entity() *jsondoc.Object { return r.entity }

// EntityStatus returns the outcome of the entity write.
func (r Result) EntityStatus() ItemStatus { return status(r.entityErr, r.skipped) }

// IndexStatus returns the outcome of the index document write.
func (r Result) IndexStatus() ItemStatus { return status(r.indexErr, r.skipped) }

// EntityErr returns the entity write error, if any.
func (r Result) EntityErr() error { return r.entityErr }

// IndexErr returns the index write error, if any.
func (r Result) IndexErr() error { return r.indexErr }

// Created reports whether the entity write succeeded.
func (r Result) Created() bool { return r.entityErr == nil && !r.skipped }

func status(err error, skipped bool) ItemStatus {
	switch {
	case skipped:
		return StatusSkipped
	case err != nil:
		return StatusError
	}
	return StatusOK
}

// Summary is the outcome of a bulk create.
type Summary struct {
	// Created counts successful entity writes. Index outcomes do not
	// contribute.
	Created int
	Results []Result
}

// Summarize counts the created entities of results.
func Summarize(results []Result) Summary {
	n := 0
	for _, r := range results {
		if r.Created() {
			n++
		}
	}
	return Summary{Created: n, Results: results}
}
