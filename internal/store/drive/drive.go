// Package drive backs the remote document store with Google Drive: each
// ledger key becomes one JSON file inside a configured folder.
package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	gdrive "google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"

	"cassa/internal/store"
)

type Client struct {
	svc      *gdrive.Service
	folderID string
}

var _ store.DocumentStore = (*Client)(nil)

// NewFromEnv creates a Drive-backed store using environment variables.
// Required: GOOGLE_DRIVE_FOLDER_ID.
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS (checked in that order).
func NewFromEnv(ctx context.Context) (*Client, error) {
	folderID := strings.TrimSpace(os.Getenv("GOOGLE_DRIVE_FOLDER_ID"))
	if folderID == "" {
		return nil, errors.New("missing GOOGLE_DRIVE_FOLDER_ID")
	}
	svc, err := newDriveService(ctx)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Client{svc: svc, folderID: folderID}, nil
}

func newDriveService(ctx context.Context) (*gdrive.Service, error) {
	credsJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	credsFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var opts []goption.ClientOption
	switch {
	case credsJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(credsJSON)))
	case credsFile != "":
		opts = append(opts, goption.WithCredentialsFile(credsFile))
	default:
		return nil, errors.New("no Google credentials configured")
	}
	opts = append(opts, goption.WithScopes(gdrive.DriveFileScope))

	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

func fileName(key string) string {
	return key + ".json"
}

// findFile returns the Drive file id for key, or "" when absent.
func (c *Client) findFile(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		strings.ReplaceAll(fileName(key), "'", `\'`), c.folderID)
	list, err := c.svc.Files.List().
		Q(query).
		Fields("files(id)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("list drive files: %w", err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	id, err := c.findFile(ctx, key)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrNoDocument
	}
	resp, err := c.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download ledger file: %w", err)
	}
	defer resp.Body.Close()
	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ledger file: %w", err)
	}
	return doc, nil
}

func (c *Client) Put(ctx context.Context, key string, doc []byte) error {
	id, err := c.findFile(ctx, key)
	if err != nil {
		return err
	}
	media := bytes.NewReader(doc)
	if id == "" {
		_, err = c.svc.Files.Create(&gdrive.File{
			Name:     fileName(key),
			Parents:  []string{c.folderID},
			MimeType: "application/json",
		}).Media(media).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("create ledger file: %w", err)
		}
		return nil
	}
	if _, err = c.svc.Files.Update(id, &gdrive.File{}).Media(media).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update ledger file: %w", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	id, err := c.findFile(ctx, key)
	if err != nil {
		return err
	}
	if id == "" {
		return nil
	}
	if err := c.svc.Files.Delete(id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete ledger file: %w", err)
	}
	return nil
}
