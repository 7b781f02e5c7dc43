package engine

import (
	"context"
	"fmt"
	"sync"

	"loom-engine/internal/apperrors"
	"loom-engine/internal/domain/folder"
	"loom-engine/internal/domain/item"
	"loom-engine/internal/remote"
)

// fakeFolderAPI is an in-memory stand-in for the remote folder endpoint.
// Failures and blocking are injectable per test.
type fakeFolderAPI struct {
	mu          sync.Mutex
	records     map[string]*folder.Folder
	order       []string
	nextID      int
	failCreate  error
	failUpdate  error
	failDelete  error
	blockUpdate chan struct{} // when non-nil, Update waits on it

	createCalls int
	updateCalls int
	deleteCalls int
}

func newFakeFolderAPI(seed ...*folder.Folder) *fakeFolderAPI {
	f := &fakeFolderAPI{records: make(map[string]*folder.Folder)}
	for _, rec := range seed {
		f.records[rec.ID] = rec.Clone()
		f.order = append(f.order, rec.ID)
	}
	return f
}

func (f *fakeFolderAPI) List(ctx context.Context, ownerID string) ([]*folder.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*folder.Folder
	for _, id := range f.order {
		if rec := f.records[id]; rec != nil && rec.OwnerID == ownerID {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (f *fakeFolderAPI) Create(ctx context.Context, rec *folder.Folder) (*folder.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	f.nextID++
	confirmed := rec.Clone()
	confirmed.ID = fmt.Sprintf("srv-%d", f.nextID)
	f.records[confirmed.ID] = confirmed.Clone()
	f.order = append(f.order, confirmed.ID)
	return confirmed, nil
}

func (f *fakeFolderAPI) Update(ctx context.Context, ownerID, id string, p folder.Patch) (*folder.Folder, error) {
	f.mu.Lock()
	block := f.blockUpdate
	f.updateCalls++
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, apperrors.NotFound("REMOTE_NOT_FOUND", "record no longer exists").Build()
	}
	next := p.Apply(rec)
	f.records[id] = next.Clone()
	return next, nil
}

func (f *fakeFolderAPI) Delete(ctx context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failDelete != nil {
		return f.failDelete
	}
	delete(f.records, id)
	return nil
}

// fakeItemAPI is the item-endpoint counterpart. List behavior is supplied
// per test through listFn.
type fakeItemAPI struct {
	mu         sync.Mutex
	records    map[string]*item.Item
	nextID     int
	failCreate error
	failUpdate error
	failDelete error
	listFn     func(q remote.ListQuery) ([]*item.Item, error)

	listCalls int
}

func newFakeItemAPI() *fakeItemAPI {
	return &fakeItemAPI{records: make(map[string]*item.Item)}
}

func (f *fakeItemAPI) List(ctx context.Context, ownerID string, q remote.ListQuery) ([]*item.Item, error) {
	f.mu.Lock()
	f.listCalls++
	fn := f.listFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(q)
}

func (f *fakeItemAPI) Create(ctx context.Context, it *item.Item) (*item.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	f.nextID++
	confirmed := it.Clone()
	confirmed.ID = fmt.Sprintf("srv-%d", f.nextID)
	f.records[confirmed.ID] = confirmed.Clone()
	return confirmed, nil
}

func (f *fakeItemAPI) Update(ctx context.Context, ownerID, id string, p item.Patch) (*item.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, apperrors.NotFound("REMOTE_NOT_FOUND", "record no longer exists").Build()
	}
	next := p.Apply(rec)
	f.records[id] = next.Clone()
	return next, nil
}

func (f *fakeItemAPI) Delete(ctx context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	delete(f.records, id)
	return nil
}

func strptr(s string) *string { return &s }

func testItem(id, owner, folderID, title string) *item.Item {
	return &item.Item{
		ID:       id,
		OwnerID:  owner,
		FolderID: folderID,
		Kind:     item.KindBookmark,
		Title:    title,
		Content:  "https://example.com/" + id,
	}
}

func testFolder(id, owner, name string, parentID *string) *folder.Folder {
	return &folder.Folder{
		ID:       id,
		OwnerID:  owner,
		Name:     name,
		ParentID: parentID,
	}
}
