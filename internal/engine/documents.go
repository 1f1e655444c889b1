package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"teamline/internal/domain"
	"teamline/internal/events"
	"teamline/internal/policy"
	"teamline/internal/repo"
)

// DocumentCreateOptions are parameters for creating a document.
type DocumentCreateOptions struct {
	ID          string
	Title       string
	ContentJSON string
	ProjectID   string
	TaskID      string
}

// CreateDocument inserts a document together with its first version.
func (e Engine) CreateDocument(ctx context.Context, opts DocumentCreateOptions, actor policy.Actor) (domain.Document, error) {
	if err := policy.Require(actor, policy.IntentCreate, policy.DocumentTarget{}); err != nil {
		return domain.Document{}, err
	}
	if opts.Title == "" {
		return domain.Document{}, fmt.Errorf("title required")
	}
	if actor.EmployeeID == "" {
		return domain.Document{}, fmt.Errorf("actor has no employee record")
	}
	if opts.ContentJSON == "" {
		opts.ContentJSON = "{}"
	}
	now := e.nowRFC3339()
	d := domain.Document{
		ID:          opts.ID,
		Title:       opts.Title,
		ContentJSON: opts.ContentJSON,
		CreatedBy:   actor.EmployeeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if opts.ProjectID != "" {
		d.ProjectID = &opts.ProjectID
	}
	if opts.TaskID != "" {
		d.TaskID = &opts.TaskID
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Document{}, err
	}
	defer tx.Rollback()

	if opts.ProjectID != "" {
		if _, err := e.Repo.GetProjectTx(ctx, tx, opts.ProjectID); err != nil {
			return domain.Document{}, fmt.Errorf("project %s: %w", opts.ProjectID, err)
		}
	}
	if opts.TaskID != "" {
		if _, err := e.Repo.GetTaskTx(ctx, tx, opts.TaskID); err != nil {
			return domain.Document{}, fmt.Errorf("task %s: %w", opts.TaskID, err)
		}
	}
	if err := e.Repo.InsertDocument(ctx, tx, d); err != nil {
		return domain.Document{}, fmt.Errorf("insert document: %w", err)
	}
	v := domain.DocumentVersion{
		ID:            uuid.New().String(),
		DocumentID:    d.ID,
		VersionNumber: 1,
		ContentJSON:   d.ContentJSON,
		CreatedBy:     actor.EmployeeID,
		CreatedAt:     now,
	}
	if err := e.Repo.InsertDocumentVersion(ctx, tx, v); err != nil {
		return domain.Document{}, fmt.Errorf("insert version: %w", err)
	}
	if err := e.events().Append(ctx, tx, "document.created", "document", d.ID, actor.UserID, events.EventPayload{
		"title":   d.Title,
		"version": 1,
	}); err != nil {
		return domain.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Document{}, err
	}
	return d, nil
}

// AppendVersion snapshots new content as the next version. The number is
// MAX+1 read under the same transaction, so concurrent appends never reuse
// one. Static shares are repinned to the new version.
func (e Engine) AppendVersion(ctx context.Context, documentID, contentJSON string, actor policy.Actor) (domain.Document, error) {
	d, err := e.Repo.GetDocument(ctx, documentID)
	if err != nil {
		return domain.Document{}, err
	}
	target, err := e.documentTarget(ctx, d)
	if err != nil {
		return domain.Document{}, err
	}
	if err := policy.Require(actor, policy.IntentEditContent, target); err != nil {
		return domain.Document{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Document{}, err
	}
	defer tx.Rollback()

	d, err = e.Repo.GetDocumentTx(ctx, tx, documentID)
	if err != nil {
		return domain.Document{}, err
	}
	next, err := e.Repo.NextVersionNumber(ctx, tx, d.ID)
	if err != nil {
		return domain.Document{}, err
	}
	now := e.nowRFC3339()
	v := domain.DocumentVersion{
		ID:            uuid.New().String(),
		DocumentID:    d.ID,
		VersionNumber: next,
		ContentJSON:   contentJSON,
		CreatedBy:     actor.EmployeeID,
		CreatedAt:     now,
	}
	if err := e.Repo.InsertDocumentVersion(ctx, tx, v); err != nil {
		return domain.Document{}, fmt.Errorf("insert version: %w", err)
	}
	d.ContentJSON = contentJSON
	d.UpdatedAt = now
	if err := e.Repo.UpdateDocument(ctx, tx, d); err != nil {
		return domain.Document{}, err
	}
	if err := e.Repo.RepinStaticShares(ctx, tx, d.ID, v.ID, now); err != nil {
		return domain.Document{}, fmt.Errorf("repin shares: %w", err)
	}
	if err := e.events().Append(ctx, tx, "document.version.appended", "document", d.ID, actor.UserID, events.EventPayload{
		"version": next,
	}); err != nil {
		return domain.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Document{}, err
	}
	return d, nil
}

// ShareDocument grants or switches a user's share. A live share adds the
// user to the live editors; a static share pins the latest version.
// Switching live to static drops the live editor entry and recomputes
// is_live_shared from the remaining live shares.
func (e Engine) ShareDocument(ctx context.Context, documentID, userID, mode string, actor policy.Actor) (domain.DocumentShare, error) {
	if mode != "live" && mode != "static" {
		return domain.DocumentShare{}, fmt.Errorf("mode must be live or static")
	}
	d, err := e.Repo.GetDocument(ctx, documentID)
	if err != nil {
		return domain.DocumentShare{}, err
	}
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		return domain.DocumentShare{}, fmt.Errorf("user %s: %w", userID, err)
	}
	target, err := e.documentTarget(ctx, d)
	if err != nil {
		return domain.DocumentShare{}, err
	}
	if err := policy.Require(actor, policy.IntentShare, target); err != nil {
		return domain.DocumentShare{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DocumentShare{}, err
	}
	defer tx.Rollback()

	d, err = e.Repo.GetDocumentTx(ctx, tx, documentID)
	if err != nil {
		return domain.DocumentShare{}, err
	}
	now := e.nowRFC3339()
	s := domain.DocumentShare{
		DocumentID: d.ID,
		UserID:     userID,
		Mode:       mode,
		SharedAt:   now,
	}
	if mode == "static" {
		latest, err := e.Repo.LatestVersionTx(ctx, tx, d.ID)
		if err != nil {
			return domain.DocumentShare{}, fmt.Errorf("latest version: %w", err)
		}
		s.PinnedVersionID = &latest.ID
	}
	if err := e.Repo.UpsertShare(ctx, tx, s); err != nil {
		return domain.DocumentShare{}, fmt.Errorf("upsert share: %w", err)
	}
	switch mode {
	case "live":
		if err := e.Repo.AddLiveEditor(ctx, tx, d.ID, userID, now); err != nil {
			return domain.DocumentShare{}, err
		}
		d.IsLiveShared = true
	case "static":
		if err := e.Repo.RemoveLiveEditor(ctx, tx, d.ID, userID); err != nil {
			return domain.DocumentShare{}, err
		}
		live, err := e.Repo.CountLiveShares(ctx, tx, d.ID)
		if err != nil {
			return domain.DocumentShare{}, err
		}
		d.IsLiveShared = live > 0
	}
	d.UpdatedAt = now
	if err := e.Repo.UpdateDocument(ctx, tx, d); err != nil {
		return domain.DocumentShare{}, err
	}
	if err := e.events().Append(ctx, tx, "document.shared", "document", d.ID, actor.UserID, events.EventPayload{
		"user_id": userID,
		"mode":    mode,
	}); err != nil {
		return domain.DocumentShare{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DocumentShare{}, err
	}
	return s, nil
}

// UpdateDocumentTitle renames a document.
func (e Engine) UpdateDocumentTitle(ctx context.Context, documentID, title string, actor policy.Actor) (domain.Document, error) {
	if title == "" {
		return domain.Document{}, fmt.Errorf("title required")
	}
	d, err := e.Repo.GetDocument(ctx, documentID)
	if err != nil {
		return domain.Document{}, err
	}
	target, err := e.documentTarget(ctx, d)
	if err != nil {
		return domain.Document{}, err
	}
	if err := policy.Require(actor, policy.IntentEditMetadata, target); err != nil {
		return domain.Document{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Document{}, err
	}
	defer tx.Rollback()

	d.Title = title
	d.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateDocument(ctx, tx, d); err != nil {
		return domain.Document{}, err
	}
	if err := e.events().Append(ctx, tx, "document.updated", "document", d.ID, actor.UserID, events.EventPayload{
		"title": title,
	}); err != nil {
		return domain.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Document{}, err
	}
	return d, nil
}

// GetDocument returns the document the way the actor is allowed to see it: a
// static-share viewer gets the pinned version's content instead of the live
// one.
func (e Engine) GetDocument(ctx context.Context, documentID string, actor policy.Actor) (domain.Document, error) {
	d, err := e.Repo.GetDocument(ctx, documentID)
	if err != nil {
		return domain.Document{}, err
	}
	target, err := e.documentTarget(ctx, d)
	if err != nil {
		return domain.Document{}, err
	}
	if err := policy.Require(actor, policy.IntentView, target); err != nil {
		return domain.Document{}, err
	}
	if actor.Role == policy.RoleAdmin || d.CreatedBy == actor.EmployeeID {
		return d, nil
	}
	shares, err := e.Repo.ListShares(ctx, d.ID)
	if err != nil {
		return domain.Document{}, err
	}
	for _, s := range shares {
		if s.UserID != actor.UserID || s.Mode != "static" || s.PinnedVersionID == nil {
			continue
		}
		versions, err := e.Repo.ListDocumentVersions(ctx, d.ID)
		if err != nil {
			return domain.Document{}, err
		}
		for _, v := range versions {
			if v.ID == *s.PinnedVersionID {
				d.ContentJSON = v.ContentJSON
				break
			}
		}
	}
	return d, nil
}

// ListVersions returns all versions oldest first.
func (e Engine) ListVersions(ctx context.Context, documentID string, actor policy.Actor) ([]domain.DocumentVersion, error) {
	d, err := e.Repo.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	target, err := e.documentTarget(ctx, d)
	if err != nil {
		return nil, err
	}
	if err := policy.Require(actor, policy.IntentView, target); err != nil {
		return nil, err
	}
	return e.Repo.ListDocumentVersions(ctx, documentID)
}

// ListDocuments returns documents the actor may view, optionally filtered.
func (e Engine) ListDocuments(ctx context.Context, f repo.DocumentFilters, actor policy.Actor) ([]domain.Document, error) {
	docs, err := e.Repo.ListDocuments(ctx, f)
	if err != nil {
		return nil, err
	}
	if actor.Role == policy.RoleAdmin {
		return docs, nil
	}
	var visible []domain.Document
	for _, d := range docs {
		target, err := e.documentTarget(ctx, d)
		if err != nil {
			return nil, err
		}
		if policy.CanAct(actor, policy.IntentView, target) {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

// ListShares returns the share entries of a document.
func (e Engine) ListShares(ctx context.Context, documentID string, actor policy.Actor) ([]domain.DocumentShare, error) {
	d, err := e.Repo.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	target, err := e.documentTarget(ctx, d)
	if err != nil {
		return nil, err
	}
	if err := policy.Require(actor, policy.IntentView, target); err != nil {
		return nil, err
	}
	return e.Repo.ListShares(ctx, documentID)
}

// documentTarget loads the relation snapshot the policy rules evaluate.
func (e Engine) documentTarget(ctx context.Context, d domain.Document) (policy.DocumentTarget, error) {
	t := policy.DocumentTarget{
		CreatorID:    d.CreatedBy,
		IsLiveShared: d.IsLiveShared,
	}
	shares, err := e.Repo.ListShares(ctx, d.ID)
	if err != nil {
		return t, err
	}
	for _, s := range shares {
		t.SharedWith = append(t.SharedWith, s.UserID)
	}
	editors, err := e.Repo.ListLiveEditors(ctx, d.ID)
	if err != nil {
		return t, err
	}
	for _, ed := range editors {
		t.LiveEditors = append(t.LiveEditors, ed.UserID)
	}
	if d.ProjectID != nil {
		p, err := e.Repo.GetProject(ctx, *d.ProjectID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return t, err
		}
		if err == nil {
			t.TeamIDs = append(append(t.TeamIDs, p.Team...), p.PMID)
		}
	}
	return t, nil
}
