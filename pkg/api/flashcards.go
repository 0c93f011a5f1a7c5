package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pashagolub/flasharena/pkg/data"
)

func packPath(id string) string {
	return "/flashcards/packs/" + url.PathEscape(id)
}

func flashcardPath(id string) string {
	return "/flashcards/" + url.PathEscape(id)
}

// ListPacks returns every flashcard pack
func (c *Client) ListPacks(ctx context.Context) ([]data.FlashcardPack, error) {
	var packs []data.FlashcardPack
	err := c.do(ctx, call{op: "list packs", method: http.MethodGet, path: "/flashcards/packs"}, &packs)
	return packs, err
}

// GetPack returns a single pack
func (c *Client) GetPack(ctx context.Context, id string) (data.FlashcardPack, error) {
	var pack data.FlashcardPack
	err := c.do(ctx, call{op: "get pack", method: http.MethodGet, path: packPath(id)}, &pack)
	return pack, err
}

// CreatePack adds a pack
func (c *Client) CreatePack(ctx context.Context, in data.PackInput) (data.FlashcardPack, error) {
	var pack data.FlashcardPack
	if err := in.Validate(); err != nil {
		return pack, err
	}
	err := c.do(ctx, call{op: "create pack", method: http.MethodPost, path: "/flashcards/packs", body: in}, &pack)
	return pack, err
}

// UpdatePack renames or re-describes a pack
func (c *Client) UpdatePack(ctx context.Context, id string, in data.PackInput) (data.FlashcardPack, error) {
	var pack data.FlashcardPack
	if err := in.Validate(); err != nil {
		return pack, err
	}
	err := c.do(ctx, call{op: "update pack", method: http.MethodPut, path: packPath(id), body: in}, &pack)
	return pack, err
}

// DeletePack removes a pack
func (c *Client) DeletePack(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "delete pack", method: http.MethodDelete, path: packPath(id)}, nil)
}

// ListFlashcards returns every card across all packs
func (c *Client) ListFlashcards(ctx context.Context) ([]data.Flashcard, error) {
	var cards []data.Flashcard
	err := c.do(ctx, call{op: "list flashcards", method: http.MethodGet, path: "/flashcards/all"}, &cards)
	return cards, err
}

// PackFlashcards returns the cards of one pack
func (c *Client) PackFlashcards(ctx context.Context, packID string) ([]data.Flashcard, error) {
	var cards []data.Flashcard
	err := c.do(ctx, call{
		op:     "list pack flashcards",
		method: http.MethodGet,
		path:   "/flashcards/pack/" + url.PathEscape(packID),
	}, &cards)
	return cards, err
}

// GetFlashcard returns a single card
func (c *Client) GetFlashcard(ctx context.Context, id string) (data.Flashcard, error) {
	var card data.Flashcard
	err := c.do(ctx, call{op: "get flashcard", method: http.MethodGet, path: flashcardPath(id)}, &card)
	return card, err
}

// CreateFlashcard adds a card to a pack
func (c *Client) CreateFlashcard(ctx context.Context, in data.FlashcardInput) (data.Flashcard, error) {
	var card data.Flashcard
	if err := in.Validate(); err != nil {
		return card, err
	}
	err := c.do(ctx, call{op: "create flashcard", method: http.MethodPost, path: "/flashcards/", body: in}, &card)
	return card, err
}

// UpdateFlashcard replaces a card's content
func (c *Client) UpdateFlashcard(ctx context.Context, id string, in data.FlashcardInput) (data.Flashcard, error) {
	var card data.Flashcard
	if err := in.Validate(); err != nil {
		return card, err
	}
	err := c.do(ctx, call{op: "update flashcard", method: http.MethodPut, path: flashcardPath(id), body: in}, &card)
	return card, err
}

// DeleteFlashcard removes a card
func (c *Client) DeleteFlashcard(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "delete flashcard", method: http.MethodDelete, path: flashcardPath(id)}, nil)
}

// BulkImport uploads a CSV document as multipart field "file"
func (c *Client) BulkImport(ctx context.Context, filename string, r io.Reader) (data.BulkImportResult, error) {
	var result data.BulkImportResult

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return result, fmt.Errorf("failed to prepare upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return result, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return result, fmt.Errorf("failed to finalize upload: %w", err)
	}

	cl := call{
		op:          "bulk import flashcards",
		method:      http.MethodPost,
		path:        "/flashcards/bulk-import",
		rawBody:     &buf,
		contentType: mw.FormDataContentType(),
		unwrapped:   true,
	}
	var raw json.RawMessage
	if err := c.do(ctx, cl, &raw); err != nil {
		return result, err
	}
	if err := decodeMaybeWrapped(raw, &result); err != nil {
		return result, c.decodeError(cl, err)
	}
	return result, nil
}

// ExportPack downloads a pack as CSV
func (c *Client) ExportPack(ctx context.Context, packID string) (data.FileContent, error) {
	return c.download(ctx, call{
		op:     "export pack",
		method: http.MethodGet,
		path:   "/flashcards/export/" + url.PathEscape(packID),
	}, fmt.Sprintf("flashcards_pack_%s.csv", packID))
}

// ImportTemplate downloads the bulk import template
func (c *Client) ImportTemplate(ctx context.Context) (data.FileContent, error) {
	return c.download(ctx, call{
		op:     "get import template",
		method: http.MethodPost,
		path:   "/flashcards/template",
	}, data.TemplateFilename)
}

// download accepts either a {data: FileContent} JSON answer or raw CSV bytes
func (c *Client) download(ctx context.Context, cl call, fallbackName string) (data.FileContent, error) {
	payload, header, err := c.send(ctx, cl)
	if err != nil {
		return data.FileContent{}, err
	}

	mediaType, _, _ := mime.ParseMediaType(header.Get("Content-Type"))
	if mediaType != "" && mediaType != "application/json" {
		name := fallbackName
		if _, params, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
			name = params["filename"]
		}
		return data.FileContent{Content: string(payload), Filename: name, MediaType: mediaType}, nil
	}

	var file data.FileContent
	if err := decodeMaybeWrapped(payload, &file); err != nil {
		return file, c.decodeError(cl, err)
	}
	if file.Filename == "" {
		file.Filename = fallbackName
	}
	if file.MediaType == "" {
		file.MediaType = "text/csv"
	}
	return file, nil
}

// decodeMaybeWrapped decodes raw into out, looking inside a data envelope if present
func decodeMaybeWrapped(raw []byte, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if strings.HasPrefix(string(trimmed), "{") {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
			return json.Unmarshal(env.Data, out)
		}
	}
	return json.Unmarshal(trimmed, out)
}
