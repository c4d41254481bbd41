// Package restyutil records the http traffic of resty clients for debugging.
package restyutil

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type Output interface {
	Write(name string, contents string)
}

// FilesystemOutput writes each message to its own file in a directory.
type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

// LastId returns the highest message id already present in the directory so
// a new recorder can continue numbering after it.
func (o FilesystemOutput) LastId() uint64 {
	entries, err := os.ReadDir(o.directory)
	if err != nil {
		return 0
	}
	var last uint64
	for _, entry := range entries {
		prefix, _, found := strings.Cut(entry.Name(), "-")
		if !found {
			continue
		}
		id, err := strconv.ParseUint(prefix, 10, 64)
		if err == nil && id > last {
			last = id
		}
	}
	return last
}

func (o FilesystemOutput) Write(name string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, name), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "name", name, "err", err)
	}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// messageName turns a request url into a file name, ex.
// 3 + https://letterboxd.com/dave/watchlist/page/2/ becomes 0003-dave-watchlist-page-2.txt
func messageName(id uint64, rawUrl string) string {
	path := rawUrl
	parsed, err := url.Parse(rawUrl)
	if err == nil {
		path = parsed.Path
	}
	path = strings.Trim(unsafeChars.ReplaceAllString(path, "-"), "-")
	if path == "" {
		path = "index"
	}
	return fmt.Sprintf("%04d-%s.txt", id, path)
}

// Recorder numbers the messages of every client attached to it from a single
// counter, so several clients can share one output.
type Recorder struct {
	output Output
	lastId atomic.Uint64
}

// NewRecorder starts numbering messages at lastId + 1.
func NewRecorder(output Output, lastId uint64) *Recorder {
	r := &Recorder{output: output}
	r.lastId.Store(lastId)
	return r
}

// Attach writes every response client receives to the recorder's output.
func (r *Recorder) Attach(client *resty.Client) {
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := r.lastId.Add(1)
		r.output.Write(messageName(id, res.Request.URL), formatHttpMessage(res))
		return nil
	})
}

