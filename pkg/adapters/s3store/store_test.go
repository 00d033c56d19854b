package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sprintboard/pkg/core"
)

// fakeS3 serves the handful of path-style calls the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest := strings.TrimPrefix(r.URL.Path, "/"+f.bucket)
	key := strings.TrimPrefix(rest, "/")

	switch {
	case r.Method == http.MethodGet && key == "" && r.URL.Query().Get("list-type") == "2":
		prefix := r.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>`, f.bucket, prefix, len(keys))
		for _, k := range keys {
			fmt.Fprintf(w, `<Contents><Key>%s</Key><Size>%d</Size></Contents>`, k, len(f.objects[k]))
		}
		fmt.Fprint(w, `</ListBucketResult>`)

	case r.Method == http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Write(data)

	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T, prefix string) (*Store, *fakeS3) {
	t.Helper()
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")

	fake := &fakeS3{bucket: "boards", objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(context.Background(), Config{
		Bucket:       "boards",
		Prefix:       prefix,
		Endpoint:     srv.URL,
		Region:       "us-east-1",
		AccessKey:    "key",
		SecretKey:    "secret",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	return store, fake
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		in     string
		bucket string
		prefix string
		err    bool
	}{
		{in: "s3://boards", bucket: "boards"},
		{in: "s3://boards/team/web/", bucket: "boards", prefix: "team/web"},
		{in: "s3:///nobucket", err: true},
		{in: "/local/path", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, prefix, err := ParseURI(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.prefix, prefix)
		})
	}

	assert.True(t, IsURI("s3://boards"))
	assert.False(t, IsURI("./vault"))
}

func TestStore_ReadWrite(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t, "vault")

	_, err := store.Read(ctx, "sprint-web.md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	require.NoError(t, store.Write(ctx, "boards/sprint-web.md", []byte("## To Do\n")))
	assert.Equal(t, "## To Do\n", string(fake.objects["vault/boards/sprint-web.md"]))

	data, err := store.Read(ctx, "boards/sprint-web.md")
	require.NoError(t, err)
	assert.Equal(t, "## To Do\n", string(data))

	state := store.State().(StoreState)
	assert.Equal(t, "s3://boards/vault", state.Location)
	assert.Equal(t, 1, state.Reads)
	assert.Equal(t, 1, state.Writes)
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t, "vault")
	fake.objects["vault/sprint-web.md"] = []byte("x")
	fake.objects["vault/boards/sprint-api.md"] = []byte("x")
	fake.objects["vault/notes.md"] = []byte("x")
	fake.objects["elsewhere/sprint-x.md"] = []byte("x")

	got, err := store.List(ctx, "**/sprint-*.md")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sprint-web.md", "boards/sprint-api.md"}, got)
}

func TestStore_KeyWithoutPrefix(t *testing.T) {
	store, _ := newTestStore(t, "")
	key, err := store.key("read board", "../a/./b.md")
	require.NoError(t, err)
	assert.Equal(t, "a/b.md", key)

	_, err = store.key("read board", "/")
	assert.Equal(t, core.KindIO, core.KindOf(err))
}
