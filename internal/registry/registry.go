// Package registry maintains the view of category folders. Folder metadata is
// a pure query over current storage state and the action stack, so it can
// never go stale against either.
package registry

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lewtec/triador/internal/domain"
	"github.com/lewtec/triador/internal/stack"
	"github.com/lewtec/triador/internal/storage"
)

// Registry enforces folder lifecycle invariants over the working directory.
type Registry struct {
	store  *storage.WorkDir
	stack  *stack.Stack
	logger *zap.Logger
}

// New creates a folder registry.
func New(store *storage.WorkDir, stack *stack.Stack, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: store, stack: stack, logger: logger}
}

// Create makes a new, empty category folder.
func (r *Registry) Create(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
		return domain.ErrInvalidName
	}
	if strings.EqualFold(name, domain.InputFolder) {
		return domain.ErrReservedName
	}
	exists, err := r.store.HasFolder(name)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrFolderExists
	}
	if err := r.store.CreateFolder(name); err != nil {
		return fmt.Errorf("while creating folder %q: %w", name, err)
	}
	r.logger.Info("folder created", zap.String("folder", name))
	return nil
}

// Delete removes a category folder. It fails unless the folder is empty in
// storage and no pending action references it. Folders are never deleted
// implicitly.
func (r *Registry) Delete(name string) error {
	if strings.EqualFold(name, domain.InputFolder) {
		return domain.ErrReservedName
	}
	exists, err := r.store.HasFolder(name)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrFolderNotFound
	}
	folder, err := r.describe(name)
	if err != nil {
		return err
	}
	if !folder.CanDelete() {
		return domain.ErrFolderNotDeletable
	}
	if err := r.store.RemoveFolder(name); err != nil {
		return err
	}
	r.logger.Info("folder deleted", zap.String("folder", name))
	return nil
}

// Exists reports whether a category folder is present in storage.
func (r *Registry) Exists(name string) (bool, error) {
	if strings.EqualFold(name, domain.InputFolder) {
		return false, nil
	}
	return r.store.HasFolder(name)
}

// List returns every category folder with its derived metadata, computed
// fresh from storage and the action stack.
func (r *Registry) List() ([]domain.Folder, error) {
	names, err := r.store.ListFolders()
	if err != nil {
		return nil, err
	}
	folders := make([]domain.Folder, 0, len(names))
	for _, name := range names {
		folder, err := r.describe(name)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}
	return folders, nil
}

// Names returns the sorted category folder names.
func (r *Registry) Names() ([]string, error) {
	return r.store.ListFolders()
}

func (r *Registry) describe(name string) (domain.Folder, error) {
	files, err := r.store.ListImages(name)
	if err != nil {
		return domain.Folder{}, err
	}
	return domain.Folder{
		Name:         name,
		IsEmpty:      len(files) == 0,
		PendingCount: r.stack.CountFor(name),
	}, nil
}
