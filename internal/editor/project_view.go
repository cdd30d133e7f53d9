// Package editor composes a project, its ordered documents and the write
// discipline the editor screen needs.
//
// Title changes are written immediately. Content changes are debounced per
// document. Every document mutation goes through one mutation.Coordinator
// against the project's store, so sequence numbers and out-of-sync markers
// are tracked per document.
package editor

import (
	"context"
	"slices"
	"sync"

	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
	"github.com/mattlim-fl/ai-grant-applications/internal/mutation"
	"github.com/mattlim-fl/ai-grant-applications/internal/store"
)

// ProjectAPI is the part of the remote client a ProjectView needs.
type ProjectAPI interface {
	GetProject(ctx context.Context, projectID string) envelope.Result[models.ProjectWithDocuments]
	UpdateProject(ctx context.Context, projectID string, u models.ProjectUpdate) envelope.Result[models.Project]
	CreateDocument(ctx context.Context, projectID string, in models.CreateDocumentInput) envelope.Result[models.Document]
	UpdateDocument(ctx context.Context, projectID, docID string, u models.DocumentUpdate) envelope.Result[models.Document]
	DeleteDocument(ctx context.Context, projectID, docID string) envelope.Result[models.SuccessResult]
	ReorderDocuments(ctx context.Context, projectID string, order []string) envelope.Result[models.SuccessResult]
}

// Coordinator keys that are not document ids.
const (
	keyProject   = "project"
	keyDocuments = "documents"
	keyReorder   = "reorder"
)

// ProjectView is the editor's model of one project.
type ProjectView struct {
	api       ProjectAPI
	projectID string
	store     *store.Store[models.ProjectWithDocuments]
	writes    *mutation.Coordinator

	mu       sync.Mutex
	active   string
	explicit bool
}

// NewProjectView creates a view of projectID. Options tune the coordinator,
// e.g. mutation.WithWindow in tests.
func NewProjectView(api ProjectAPI, projectID string, opts ...mutation.Option) *ProjectView {
	v := &ProjectView{api: api, projectID: projectID}
	v.store = store.New(func(ctx context.Context) envelope.Result[models.ProjectWithDocuments] {
		return api.GetProject(ctx, projectID)
	})
	v.writes = mutation.New(v.store, opts...)
	return v
}

// Store exposes the read side of the view's cache.
func (v *ProjectView) Store() *store.Store[models.ProjectWithDocuments] { return v.store }

// Load fetches the project and its documents. Once loaded, the first
// document becomes active unless the user already picked one that still
// exists.
func (v *ProjectView) Load(ctx context.Context) error {
	if err := v.store.Refetch(ctx); err != nil {
		return err
	}
	v.reconcileActive()
	return nil
}

// Project returns the cached project.
func (v *ProjectView) Project() (models.ProjectWithDocuments, bool) {
	return v.store.Value()
}

// Documents returns the cached documents in sort order.
func (v *ProjectView) Documents() []models.Document {
	p, _ := v.store.Value()
	return slices.Clone(p.Documents)
}

// Active returns the active document.
func (v *ProjectView) Active() (models.Document, bool) {
	v.mu.Lock()
	id := v.active
	v.mu.Unlock()
	return v.document(id)
}

// Select makes docID the active document. The choice sticks across reloads.
func (v *ProjectView) Select(docID string) error {
	if _, ok := v.document(docID); !ok {
		return envelope.NotFound("Document not found")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = docID
	v.explicit = true
	return nil
}

// SaveStatus returns the content save status of docID.
func (v *ProjectView) SaveStatus(docID string) mutation.Status {
	return v.writes.Status(docID)
}

// OutOfSync reports whether the last content write for docID failed.
func (v *ProjectView) OutOfSync(docID string) bool {
	return v.store.OutOfSync(docID)
}

// AddDocument appends a document and makes it active. The server assigns
// its position after the current maximum.
func (v *ProjectView) AddDocument(ctx context.Context, title string) (models.Document, error) {
	var created models.Document
	err := v.writes.Immediate(ctx, keyDocuments, nil, func(ctx context.Context) *envelope.Error {
		res := v.api.CreateDocument(ctx, v.projectID, models.CreateDocumentInput{Title: title})
		if !res.OK() {
			return res.Err
		}
		created = res.Value
		return nil
	})
	if err != nil {
		return models.Document{}, err
	}

	v.store.Update(func(p models.ProjectWithDocuments) models.ProjectWithDocuments {
		p.Documents = append(slices.Clone(p.Documents), created)
		return p
	})
	v.mu.Lock()
	v.active = created.ID
	v.explicit = true
	v.mu.Unlock()
	return created, nil
}

// DeleteDocument removes docID. Its pending content edit is dropped. When it
// was active, the first remaining document by sort order becomes active, or
// none.
func (v *ProjectView) DeleteDocument(ctx context.Context, docID string) error {
	v.writes.Cancel(docID)
	apply := func() {
		v.store.Update(func(p models.ProjectWithDocuments) models.ProjectWithDocuments {
			p.Documents = slices.DeleteFunc(slices.Clone(p.Documents), func(d models.Document) bool {
				return d.ID == docID
			})
			return p
		})
		v.mu.Lock()
		wasActive := v.active == docID
		v.mu.Unlock()
		if wasActive {
			v.selectFirst()
		}
	}
	return v.writes.Immediate(ctx, docID, apply, func(ctx context.Context) *envelope.Error {
		return v.api.DeleteDocument(ctx, v.projectID, docID).Err
	})
}

// UpdateTitle renames a document and writes the change right away.
func (v *ProjectView) UpdateTitle(ctx context.Context, docID, title string) error {
	apply := v.patchLocal(docID, func(d *models.Document) { d.Title = title })
	return v.writes.Immediate(ctx, docID+":title", apply, func(ctx context.Context) *envelope.Error {
		return v.api.UpdateDocument(ctx, v.projectID, docID, models.DocumentUpdate{Title: models.Some(title)}).Err
	})
}

// UpdateContent edits a document body. The write is debounced per
// document; only the last edit of a burst reaches the server.
func (v *ProjectView) UpdateContent(docID, content string) error {
	apply := v.patchLocal(docID, func(d *models.Document) { d.Content = content })
	return v.writes.Debounced(docID, apply, func(ctx context.Context) *envelope.Error {
		return v.api.UpdateDocument(ctx, v.projectID, docID, models.DocumentUpdate{Content: models.Some(content)}).Err
	})
}

// UpdateProject applies the supplied project fields locally and writes them.
func (v *ProjectView) UpdateProject(ctx context.Context, u models.ProjectUpdate) error {
	apply := func() {
		v.store.Update(func(p models.ProjectWithDocuments) models.ProjectWithDocuments {
			p.Project = MergeProject(p.Project, u)
			return p
		})
	}
	return v.writes.Immediate(ctx, keyProject, apply, func(ctx context.Context) *envelope.Error {
		return v.api.UpdateProject(ctx, v.projectID, u).Err
	})
}

// Reorder re-sorts the documents to match order and writes the new order in
// one request. On failure the project is refetched so the cache shows the
// server's order again.
func (v *ProjectView) Reorder(ctx context.Context, order []string) error {
	apply := func() {
		v.store.Update(func(p models.ProjectWithDocuments) models.ProjectWithDocuments {
			p.Documents = reorder(p.Documents, order)
			return p
		})
	}
	return v.writes.Reorder(ctx, keyReorder, apply, func(ctx context.Context) *envelope.Error {
		return v.api.ReorderDocuments(ctx, v.projectID, order).Err
	}, v.store.Refetch)
}

// Flush sends pending content edits now and waits for in-flight writes.
func (v *ProjectView) Flush(ctx context.Context) error {
	return v.writes.Flush(ctx)
}

// Close stops the debounce timers. Unflushed edits are dropped.
func (v *ProjectView) Close() {
	v.writes.Close()
}

func (v *ProjectView) document(docID string) (models.Document, bool) {
	if docID == "" {
		return models.Document{}, false
	}
	p, _ := v.store.Value()
	for _, d := range p.Documents {
		if d.ID == docID {
			return d, true
		}
	}
	return models.Document{}, false
}

func (v *ProjectView) patchLocal(docID string, fn func(*models.Document)) func() {
	return func() {
		v.store.Update(func(p models.ProjectWithDocuments) models.ProjectWithDocuments {
			docs := slices.Clone(p.Documents)
			for i := range docs {
				if docs[i].ID == docID {
					fn(&docs[i])
				}
			}
			p.Documents = docs
			return p
		})
	}
}

func (v *ProjectView) reconcileActive() {
	v.mu.Lock()
	keep := v.explicit && v.active != ""
	id := v.active
	v.mu.Unlock()
	if keep {
		if _, ok := v.document(id); ok {
			return
		}
	}
	v.selectFirst()
}

// selectFirst activates the document with the lowest sort order, or none.
func (v *ProjectView) selectFirst() {
	docs := v.Documents()
	first := ""
	if len(docs) > 0 {
		first = slices.MinFunc(docs, func(a, b models.Document) int { return a.SortOrder - b.SortOrder }).ID
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = first
	v.explicit = false
}

// reorder returns docs sorted to match order, renumbering sort_order by
// position. Documents missing from order keep their relative order after
// the listed ones.
func reorder(docs []models.Document, order []string) []models.Document {
	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}
	out := slices.Clone(docs)
	slices.SortStableFunc(out, func(a, b models.Document) int {
		ra, oka := rank[a.ID]
		rb, okb := rank[b.ID]
		switch {
		case oka && okb:
			return ra - rb
		case oka:
			return -1
		case okb:
			return 1
		default:
			return a.SortOrder - b.SortOrder
		}
	})
	for i := range out {
		out[i].SortOrder = i
	}
	return out
}

// MergeProject applies the set fields of u to p the way the server does:
// an empty or null funder or deadline clears it.
func MergeProject(p models.Project, u models.ProjectUpdate) models.Project {
	if u.Name.Set && !u.Name.Null {
		p.Name = u.Name.Value
	}
	if u.Funder.Set {
		p.Funder = clearable(u.Funder)
	}
	if u.Deadline.Set {
		p.Deadline = clearable(u.Deadline)
	}
	if u.Status.Set && !u.Status.Null {
		p.Status = u.Status.Value
	}
	return p
}

func clearable(o models.Optional[string]) *string {
	if o.Null || o.Value == "" {
		return nil
	}
	v := o.Value
	return &v
}
