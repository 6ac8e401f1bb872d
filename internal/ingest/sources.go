package ingest

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/manualbridge/manualbridge/internal/assets"
	"github.com/manualbridge/manualbridge/internal/domain"
	"github.com/manualbridge/manualbridge/internal/sharepoint"
)

// SourceStore lists and downloads raw source files for a document. Documents
// are folders: blobs under `<doc>/` in the raw container, or a SharePoint
// subfolder of the configured root.
type SourceStore interface {
	// Roots lists the document names available at the source.
	Roots(ctx context.Context) ([]string, error)
	// List returns the files under one document folder.
	List(ctx context.Context, docName string) ([]domain.SourceFile, error)
	// Download fetches the content of a listed file.
	Download(ctx context.Context, file domain.SourceFile) ([]byte, error)
}

// PickPDF selects the source PDF from a listing: the first file with a .pdf
// extension, case-insensitive. Image files and markers never qualify.
func PickPDF(files []domain.SourceFile) (domain.SourceFile, bool) {
	for _, f := range files {
		if strings.EqualFold(path.Ext(f.Name), ".pdf") {
			return f, true
		}
	}
	return domain.SourceFile{}, false
}

// BlobSource reads sources from the raw blob container.
type BlobSource struct {
	store     assets.BlobStore
	container string
}

// NewBlobSource creates a source over the raw container.
func NewBlobSource(store assets.BlobStore, container string) *BlobSource {
	return &BlobSource{store: store, container: container}
}

// Roots returns the unique first path segments of all blobs.
func (s *BlobSource) Roots(ctx context.Context) ([]string, error) {
	names, err := s.store.List(ctx, s.container, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var roots []string
	for _, name := range names {
		root, _, ok := strings.Cut(name, "/")
		if !ok || seen[root] {
			continue
		}
		seen[root] = true
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots, nil
}

// List returns the files directly under the document folder.
func (s *BlobSource) List(ctx context.Context, docName string) ([]domain.SourceFile, error) {
	names, err := s.store.List(ctx, s.container, docName+"/")
	if err != nil {
		return nil, err
	}

	files := make([]domain.SourceFile, 0, len(names))
	for _, name := range names {
		files = append(files, domain.SourceFile{
			ID:   name,
			Name: path.Base(name),
		})
	}
	return files, nil
}

// Download fetches a blob by its full name.
func (s *BlobSource) Download(ctx context.Context, file domain.SourceFile) ([]byte, error) {
	return s.store.Download(ctx, s.container, file.ID)
}

var _ SourceStore = (*BlobSource)(nil)

// SharePointSource reads sources from a SharePoint drive folder.
type SharePointSource struct {
	client *sharepoint.Client
	root   string
}

// NewSharePointSource creates a source rooted at a drive folder.
func NewSharePointSource(client *sharepoint.Client, root string) *SharePointSource {
	return &SharePointSource{client: client, root: root}
}

// Roots lists the subfolders of the configured root folder.
func (s *SharePointSource) Roots(ctx context.Context) ([]string, error) {
	return s.client.ListSubfolders(ctx, s.root)
}

// List returns the files inside the document's subfolder.
func (s *SharePointSource) List(ctx context.Context, docName string) ([]domain.SourceFile, error) {
	return s.client.ListFolder(ctx, s.folderFor(docName))
}

// Download fetches a drive item by ID.
func (s *SharePointSource) Download(ctx context.Context, file domain.SourceFile) ([]byte, error) {
	return s.client.Download(ctx, file.ID)
}

func (s *SharePointSource) folderFor(docName string) string {
	if s.root == "" {
		return docName
	}
	return s.root + "/" + docName
}

var _ SourceStore = (*SharePointSource)(nil)
