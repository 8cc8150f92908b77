package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/anota/internal/vault"
)

const (
	maxImageBytes = 10 << 20
	maxRedirects  = 5
)

type uploadResult struct {
	SavedPath     string `json:"savedPath"`
	MarkdownImage string `json:"markdownImage"`
	NoteID        string `json:"noteId,omitempty"`
}

// image is a downloaded or decoded upload before it is checked.
type image struct {
	data []byte
	ext  string // from the declared MIME type, may be empty
}

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	img, err := loadImage(ctx, raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := req.GetString("filename", "")
	if name == "" {
		name = filenameFromURL(raw, img.ext)
	}
	if err := vault.CheckImage(img.data, name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rel, err := s.svc.Store().SaveAsset(img.data, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save asset: %v", err)), nil
	}

	alt := strings.TrimSuffix(path.Base(name), path.Ext(name))
	res := uploadResult{SavedPath: rel, MarkdownImage: fmt.Sprintf("![%s](%s)", alt, rel)}

	if id := req.GetString("note_id", ""); id != "" {
		if err := s.appendToNote(id, res.MarkdownImage); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("saved %s but could not add it to note: %v", rel, err)), nil
		}
		res.NoteID = id
	}

	out, _ := json.Marshal(res)
	return mcp.NewToolResultText(string(out)), nil
}

// appendToNote adds line as a new paragraph at the end of a note and
// writes it at once.
func (s *Server) appendToNote(id, line string) error {
	n, err := s.svc.Note(id)
	if err != nil {
		return err
	}
	content := line
	if body := strings.TrimRight(n.Content, "\n"); body != "" {
		content = body + "\n" + line
	}
	if _, err := s.svc.UpdateContent(id, content); err != nil {
		return err
	}
	return s.svc.Flush(id)
}

func loadImage(ctx context.Context, raw string) (image, error) {
	if strings.HasPrefix(raw, "data:") {
		return decodeDataURI(raw)
	}
	return fetchHTTP(ctx, raw)
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI.
func decodeDataURI(uri string) (image, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return image{}, fmt.Errorf("invalid data URI: missing comma separator")
	}
	mime, params, _ := strings.Cut(meta, ";")
	if !strings.Contains(params, "base64") {
		return image{}, fmt.Errorf("only base64 data URIs are supported")
	}
	ext := vault.ImageExt(mime)
	if ext == "" {
		return image{}, fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return image{}, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > maxImageBytes {
		return image{}, fmt.Errorf("file too large: %d bytes (max %d)", len(data), maxImageBytes)
	}
	return image{data: data, ext: ext}, nil
}

// fetchHTTP downloads an image from an http(s) URL, refusing local and
// metadata addresses.
func fetchHTTP(ctx context.Context, raw string) (image, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return image{}, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return image{}, fmt.Errorf("unsupported scheme: %q (only http/https)", u.Scheme)
	}
	if err := checkBlockedHost(u.Hostname()); err != nil {
		return image{}, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return image{}, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return image{}, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return image{}, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return image{}, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxImageBytes {
		return image{}, fmt.Errorf("file too large: exceeds %d bytes", maxImageBytes)
	}
	return image{data: data, ext: vault.ImageExt(resp.Header.Get("Content-Type"))}, nil
}

// checkBlockedHost rejects loopback, private and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "" || host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %q", host)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil //nolint:nilerr // the client reports DNS failures
		}
		ip = ips[0]
	}
	switch {
	case ip.IsLoopback(), ip.IsUnspecified():
		return fmt.Errorf("blocked host: loopback address %s", host)
	case ip.IsLinkLocalUnicast():
		// 169.254.169.254 is the usual metadata endpoint.
		return fmt.Errorf("blocked host: link-local address %s", host)
	case ip.IsPrivate():
		return fmt.Errorf("blocked host: private address %s", host)
	}
	return nil
}

// filenameFromURL takes the last path segment of a URL, or "image" plus
// the detected extension.
func filenameFromURL(raw, ext string) string {
	if ext == "" {
		ext = ".bin"
	}
	if strings.HasPrefix(raw, "data:") {
		return "image" + ext
	}
	if u, err := url.Parse(raw); err == nil {
		base := path.Base(u.Path)
		if base != "." && base != "/" && strings.Contains(base, ".") {
			return base
		}
	}
	return "image" + ext
}
