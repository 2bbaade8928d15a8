package sharepoint

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"testing"
)

// fakeRemote emulates the REST surface: folders exist once added, a missing
// folder probe fails with a 404 status line the way gosip surfaces it.
type fakeRemote struct {
	existing map[string]bool
	addErrs  map[string]error
	// raceCreated marks folders that appear between a failed add and the
	// recheck, as if another run created them
	raceCreated map[string]bool
	webErr      error

	addCalls     []string // "parent|name"
	files        map[string][]byte
	chunkedSizes map[string]int
	chunkedBytes map[string][]byte
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		existing:     make(map[string]bool),
		addErrs:      make(map[string]error),
		raceCreated:  make(map[string]bool),
		files:        make(map[string][]byte),
		chunkedSizes: make(map[string]int),
		chunkedBytes: make(map[string][]byte),
	}
}

func (f *fakeRemote) webTitle(_ context.Context) error {
	return f.webErr
}

func (f *fakeRemote) folderExists(_ context.Context, folderPath string) error {
	if f.existing[folderPath] {
		return nil
	}
	return errors.New("404 Not Found")
}

func (f *fakeRemote) addFolder(_ context.Context, parentPath, name string) error {
	target := path.Join(parentPath, name)
	f.addCalls = append(f.addCalls, parentPath+"|"+name)
	if err := f.addErrs[target]; err != nil {
		if f.raceCreated[target] {
			f.existing[target] = true
		}
		return err
	}
	f.existing[target] = true
	return nil
}

func (f *fakeRemote) addFile(_ context.Context, folderPath, filename string, content []byte) error {
	f.files[path.Join(folderPath, filename)] = content
	return nil
}

func (f *fakeRemote) addFileChunked(_ context.Context, folderPath, filename string, content io.Reader, chunkSize int) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	key := path.Join(folderPath, filename)
	f.chunkedSizes[key] = chunkSize
	f.chunkedBytes[key] = data
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(remote remote) *Client {
	return &Client{
		remote:         remote,
		siteURL:        "https://acme.sharepoint.com/sites/helpdesk",
		chunkThreshold: 64,
		chunkSize:      16,
		timeout:        defaultTimeout,
		logger:         testLogger(),
	}
}

func TestEnsureFolder_CreatesMissingSegments(t *testing.T) {
	remote := newFakeRemote()
	client := newTestClient(remote)

	got, err := client.EnsureFolder(context.Background(), "", "FreshdeskTickets")
	if err != nil {
		t.Fatalf("EnsureFolder() error = %v", err)
	}
	if got != "FreshdeskTickets" {
		t.Errorf("EnsureFolder() = %s, want FreshdeskTickets", got)
	}

	got, err = client.EnsureFolder(context.Background(), "FreshdeskTickets", "Ticket_100")
	if err != nil {
		t.Fatalf("EnsureFolder() error = %v", err)
	}
	if got != "FreshdeskTickets/Ticket_100" {
		t.Errorf("EnsureFolder() = %s, want FreshdeskTickets/Ticket_100", got)
	}

	want := []string{"|FreshdeskTickets", "FreshdeskTickets|Ticket_100"}
	if len(remote.addCalls) != len(want) || remote.addCalls[0] != want[0] || remote.addCalls[1] != want[1] {
		t.Errorf("addCalls = %v, want %v", remote.addCalls, want)
	}
}

func TestEnsureFolder_NestedParentsCreatedInOrder(t *testing.T) {
	remote := newFakeRemote()
	client := newTestClient(remote)

	got, err := client.EnsureFolder(context.Background(), "Shared Documents/archive", "2024")
	if err != nil {
		t.Fatalf("EnsureFolder() error = %v", err)
	}
	if got != "Shared Documents/archive/2024" {
		t.Errorf("EnsureFolder() = %s", got)
	}

	want := []string{"|Shared Documents", "Shared Documents|archive", "Shared Documents/archive|2024"}
	if len(remote.addCalls) != 3 {
		t.Fatalf("addCalls = %v, want %v", remote.addCalls, want)
	}
	for i := range want {
		if remote.addCalls[i] != want[i] {
			t.Errorf("addCalls[%d] = %s, want %s", i, remote.addCalls[i], want[i])
		}
	}
}

func TestEnsureFolder_Idempotent(t *testing.T) {
	remote := newFakeRemote()
	client := newTestClient(remote)

	first, err := client.EnsureFolder(context.Background(), "FreshdeskTickets", "Ticket_9")
	if err != nil {
		t.Fatalf("EnsureFolder() error = %v", err)
	}
	addsAfterFirst := len(remote.addCalls)

	second, err := client.EnsureFolder(context.Background(), "FreshdeskTickets", "Ticket_9")
	if err != nil {
		t.Fatalf("EnsureFolder() second call error = %v, want no-op", err)
	}
	if second != first {
		t.Errorf("second EnsureFolder() = %s, want %s", second, first)
	}
	if len(remote.addCalls) != addsAfterFirst {
		t.Errorf("second call issued %d extra adds, want 0", len(remote.addCalls)-addsAfterFirst)
	}
}

func TestEnsureFolder_ConcurrentCreationRecovered(t *testing.T) {
	remote := newFakeRemote()
	// The add collides with a folder created in between; the recheck finds it
	remote.addErrs["FreshdeskTickets"] = errors.New("folder already exists")
	remote.raceCreated["FreshdeskTickets"] = true
	client := newTestClient(remote)

	got, err := client.EnsureFolder(context.Background(), "", "FreshdeskTickets")
	if err != nil {
		t.Fatalf("EnsureFolder() error = %v, want collision to be recovered", err)
	}
	if got != "FreshdeskTickets" {
		t.Errorf("EnsureFolder() = %s", got)
	}
}

func TestEnsureFolder_AddFailureSurfaces(t *testing.T) {
	remote := newFakeRemote()
	remote.addErrs["FreshdeskTickets"] = errors.New("401 Unauthorized")
	client := newTestClient(remote)

	_, err := client.EnsureFolder(context.Background(), "", "FreshdeskTickets")
	if err == nil {
		t.Fatal("EnsureFolder() error = nil, want failure when folder still missing")
	}
	if !IsAuthError(err) {
		t.Errorf("IsAuthError(%v) = false, want true", err)
	}
}

func TestUploadFile_RoutesOnChunkThreshold(t *testing.T) {
	tests := []struct {
		name        string
		size        int64
		wantChunked bool
	}{
		{"below threshold single shot", 63, false},
		{"at threshold chunked", 64, true},
		{"above threshold chunked", 65, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newFakeRemote()
			client := newTestClient(remote)
			content := bytes.Repeat([]byte("x"), int(tt.size))

			err := client.UploadFile(context.Background(), "FreshdeskTickets/Ticket_1", "doc.bin",
				bytes.NewReader(content), tt.size)
			if err != nil {
				t.Fatalf("UploadFile() error = %v", err)
			}

			key := "FreshdeskTickets/Ticket_1/doc.bin"
			if tt.wantChunked {
				if _, ok := remote.files[key]; ok {
					t.Error("single-shot upload used, want chunked")
				}
				if !bytes.Equal(remote.chunkedBytes[key], content) {
					t.Errorf("chunked bytes = %d, want %d", len(remote.chunkedBytes[key]), len(content))
				}
				if remote.chunkedSizes[key] != 16 {
					t.Errorf("chunk size = %d, want 16", remote.chunkedSizes[key])
				}
			} else {
				if _, ok := remote.chunkedBytes[key]; ok {
					t.Error("chunked upload used, want single shot")
				}
				if !bytes.Equal(remote.files[key], content) {
					t.Errorf("uploaded bytes = %d, want %d", len(remote.files[key]), len(content))
				}
			}
		})
	}
}

func TestUploadFile_TrimsFolderPath(t *testing.T) {
	remote := newFakeRemote()
	client := newTestClient(remote)

	err := client.UploadFile(context.Background(), "/FreshdeskTickets/Ticket_1/", "a.txt",
		strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if _, ok := remote.files["FreshdeskTickets/Ticket_1/a.txt"]; !ok {
		t.Errorf("files = %v, want trimmed folder path key", remote.files)
	}
}

func TestAuthenticate(t *testing.T) {
	remote := newFakeRemote()
	client := newTestClient(remote)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Errorf("Authenticate() error = %v, want nil", err)
	}

	remote.webErr = errors.New("401 Unauthorized")
	err := client.Authenticate(context.Background())
	if !IsAuthError(err) {
		t.Errorf("IsAuthError(%v) = false, want true", err)
	}
}
