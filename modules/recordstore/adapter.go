package recordstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// recordAdapter implements RecordPort over the recordstore module's
// request-reply services.
type recordAdapter struct {
	container mono.ServiceContainer
}

// NewRecordAdapter creates a RecordPort backed by container, the
// ServiceContainer received via SetDependencyServiceContainer.
func NewRecordAdapter(container mono.ServiceContainer) RecordPort {
	if container == nil {
		panic("record adapter requires non-nil ServiceContainer")
	}
	return &recordAdapter{container: container}
}

// Select lists records via the select service, following pages until the
// whole result has been received.
func (a *recordAdapter) Select(ctx context.Context, table string, filter Filter) ([]Record, error) {
	records := make([]Record, 0)
	offset := 0
	for {
		req := SelectRequest{Table: table, Filter: filter, Offset: offset}
		var resp SelectResponse
		if err := helper.CallRequestReplyService(
			ctx,
			a.container,
			"select",
			json.Marshal,
			json.Unmarshal,
			&req,
			&resp,
		); err != nil {
			return nil, fmt.Errorf("select service call failed: %w", err)
		}

		records = append(records, resp.Records...)
		if !resp.More || resp.NextOffset <= offset {
			return records, nil
		}
		offset = resp.NextOffset
	}
}

// Insert stores a record via the insert service.
func (a *recordAdapter) Insert(ctx context.Context, table string, record Record) (Record, error) {
	req := InsertRequest{Table: table, Record: record}
	var resp InsertResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"insert",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("insert service call failed: %w", err)
	}
	return resp.Record, nil
}

// Find looks up a record via the find service.
func (a *recordAdapter) Find(ctx context.Context, table, id string) (Record, bool, error) {
	req := FindRequest{Table: table, ID: id}
	var resp FindResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"find",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, false, fmt.Errorf("find service call failed: %w", err)
	}
	return resp.Record, resp.Found, nil
}

// Update merges fields into a record via the update service.
func (a *recordAdapter) Update(ctx context.Context, table, id string, partial Record) (bool, error) {
	req := UpdateRequest{Table: table, ID: id, Fields: partial}
	var resp MutationResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"update",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return false, fmt.Errorf("update service call failed: %w", err)
	}
	return resp.Affected, nil
}

// Delete removes a record via the delete service.
func (a *recordAdapter) Delete(ctx context.Context, table, id string) (bool, error) {
	req := DeleteRequest{Table: table, ID: id}
	var resp MutationResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"delete",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return false, fmt.Errorf("delete service call failed: %w", err)
	}
	return resp.Affected, nil
}
