package sharepoint

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/koltyakov/gosip"
	"github.com/koltyakov/gosip/api"
	strategy "github.com/koltyakov/gosip/auth/saml"
)

const (
	// DefaultChunkThreshold is the file size at which uploads switch to the
	// chunked session API. SharePoint rejects oversized single-shot uploads.
	DefaultChunkThreshold int64 = 4 * 1024 * 1024

	// DefaultChunkSize is the per-request size for chunked uploads
	DefaultChunkSize = 2 * 1024 * 1024

	defaultTimeout = 60 * time.Second
)

// remote is the slice of the SharePoint REST surface the client drives. The
// indirection separates the folder-walk and upload-routing logic from the
// gosip wire calls so it can run against a fake.
type remote interface {
	// webTitle probes the web endpoint to verify the session
	webTitle(ctx context.Context) error
	// folderExists returns nil when folderPath exists
	folderExists(ctx context.Context, folderPath string) error
	// addFolder creates name under parentPath ("" means the web root folder)
	addFolder(ctx context.Context, parentPath, name string) error
	// addFile uploads content single-shot with overwrite
	addFile(ctx context.Context, folderPath, filename string, content []byte) error
	// addFileChunked uploads through an upload session with overwrite
	addFileChunked(ctx context.Context, folderPath, filename string, content io.Reader, chunkSize int) error
}

// gosipRemote implements remote over gosip.
type gosipRemote struct {
	sp *api.SP
}

func (g *gosipRemote) conf(ctx context.Context) *api.SP {
	return g.sp.Conf(&api.RequestConfig{Context: ctx})
}

func (g *gosipRemote) webTitle(ctx context.Context) error {
	_, err := g.conf(ctx).Web().Select("Title").Get()
	return err
}

func (g *gosipRemote) folderExists(ctx context.Context, folderPath string) error {
	_, err := g.conf(ctx).Web().GetFolder(folderPath).Get()
	return err
}

func (g *gosipRemote) addFolder(ctx context.Context, parentPath, name string) error {
	parent := g.conf(ctx).Web().GetFolder(parentPath)
	if parentPath == "" {
		parent = g.conf(ctx).Web().RootFolder()
	}
	_, err := parent.Folders().Add(name)
	return err
}

func (g *gosipRemote) addFile(ctx context.Context, folderPath, filename string, content []byte) error {
	_, err := g.conf(ctx).Web().GetFolder(folderPath).Files().Add(filename, content, true)
	return err
}

func (g *gosipRemote) addFileChunked(ctx context.Context, folderPath, filename string, content io.Reader, chunkSize int) error {
	_, err := g.conf(ctx).Web().GetFolder(folderPath).Files().AddChunked(filename, content, &api.AddChunkedOptions{
		Overwrite: true,
		ChunkSize: chunkSize,
	})
	return err
}

// Client wraps SharePoint folder and file operations behind gosip.
type Client struct {
	remote         remote
	siteURL        string
	chunkThreshold int64
	chunkSize      int
	timeout        time.Duration
	logger         *slog.Logger
}

// ClientConfig configures the SharePoint client
type ClientConfig struct {
	// SiteURL is the full site URL, e.g.
	// "https://company.sharepoint.com/sites/support"
	SiteURL  string
	Username string
	Password string

	// ChunkThreshold is the size above which uploads go through the chunked
	// path; zero uses DefaultChunkThreshold
	ChunkThreshold int64
	// ChunkSize is the chunk request size; zero uses DefaultChunkSize
	ChunkSize int

	Timeout time.Duration
	Logger  *slog.Logger
}

// Validate checks if the configuration is valid
func (c ClientConfig) Validate() error {
	if c.SiteURL == "" {
		return fmt.Errorf("sharepoint site URL is required")
	}
	if _, err := url.Parse(c.SiteURL); err != nil {
		return fmt.Errorf("invalid sharepoint site URL: %w", err)
	}
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("sharepoint username and password are required")
	}
	return nil
}

// NewClient creates a new SharePoint client using user-credential (SAML)
// authentication. The session is established lazily; call Authenticate to
// verify credentials up front.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authCnfg := &strategy.AuthCnfg{
		SiteURL:  cfg.SiteURL,
		Username: cfg.Username,
		Password: cfg.Password,
	}
	spClient := &gosip.SPClient{AuthCnfg: authCnfg}

	chunkThreshold := cfg.ChunkThreshold
	if chunkThreshold == 0 {
		chunkThreshold = DefaultChunkThreshold
	}
	chunkSize := cfg.ChunkSize
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		remote:         &gosipRemote{sp: api.NewSP(spClient)},
		siteURL:        cfg.SiteURL,
		chunkThreshold: chunkThreshold,
		chunkSize:      chunkSize,
		timeout:        timeout,
		logger:         logger,
	}, nil
}

// SiteURL returns the configured site URL.
func (c *Client) SiteURL() string {
	return c.siteURL
}

// Authenticate probes the site web endpoint to establish and verify the
// session. Invalid credentials or insufficient permission surface as
// ErrUnauthorized.
func (c *Client) Authenticate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.remote.webTitle(ctx); err != nil {
		return wrapError(err, "Authenticate", c.siteURL)
	}

	c.logger.Info("Connected to SharePoint site", "site_url", c.siteURL)
	return nil
}

// EnsureFolder idempotently ensures that parentPath/name exists, creating any
// missing path segments along the way. It returns the folder path relative to
// the site root. Re-running against an existing folder is a no-op.
func (c *Client) EnsureFolder(ctx context.Context, parentPath, name string) (string, error) {
	folderPath := path.Join(strings.Trim(parentPath, "/"), name)

	current := ""
	for _, segment := range strings.Split(folderPath, "/") {
		if segment == "" {
			continue
		}

		next := segment
		if current != "" {
			next = current + "/" + segment
		}

		if err := c.remote.folderExists(ctx, next); err != nil {
			if addErr := c.remote.addFolder(ctx, current, segment); addErr != nil {
				// Another run may have created it in between; only fail if
				// it still doesn't exist
				if recheckErr := c.remote.folderExists(ctx, next); recheckErr != nil {
					return "", wrapError(addErr, "EnsureFolder", next)
				}
			}
			c.logger.Info("Created folder", "path", next)
		} else {
			c.logger.Debug("Folder already exists", "path", next)
		}

		current = next
	}

	return folderPath, nil
}

// UploadFile uploads a file into folderPath with overwrite semantics:
// re-running a migration replaces the file rather than erroring or
// duplicating. Files at or above the chunk threshold use the chunked upload
// session since SharePoint rejects oversized single-shot uploads.
func (c *Client) UploadFile(ctx context.Context, folderPath, filename string, r io.Reader, size int64) error {
	folderPath = strings.Trim(folderPath, "/")

	if size >= c.chunkThreshold {
		c.logger.Info("Uploading file in chunks",
			"folder", folderPath,
			"filename", filename,
			"size", size)

		if err := c.remote.addFileChunked(ctx, folderPath, filename, r, c.chunkSize); err != nil {
			return wrapError(err, "UploadFile", path.Join(folderPath, filename))
		}
		return nil
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read file content: %w", err)
	}

	if err := c.remote.addFile(ctx, folderPath, filename, content); err != nil {
		return wrapError(err, "UploadFile", path.Join(folderPath, filename))
	}

	c.logger.Debug("Uploaded file", "folder", folderPath, "filename", filename, "size", size)
	return nil
}
