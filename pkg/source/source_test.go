package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

var asOf = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return asOf }

func sampleRecords() []records.ContentRecord {
	return []records.ContentRecord{
		{ID: "UC1", Kind: records.KindChannel, Metrics: map[string]float64{"subscribers": 100}},
		{ID: "v1", Kind: records.KindVideo, ChannelID: "UC1", Keywords: []string{"go"}, PublishedAt: asOf.AddDate(0, 0, -2), Metrics: map[string]float64{"views": 10}},
		{ID: "v2", Kind: records.KindVideo, ChannelID: "UC1", Keywords: []string{"go", "rust"}, PublishedAt: asOf.AddDate(0, 0, -20), Metrics: map[string]float64{"views": 20}},
		{ID: "go", Kind: records.KindKeyword, Metrics: map[string]float64{"search_volume": 500}},
	}
}

func TestMemory_WindowFiltering(t *testing.T) {
	m := NewMemory(sampleRecords(), WithClock(fixedClock))

	week, err := m.Snapshot(context.Background(), records.Window7d)
	require.NoError(t, err)
	assert.Len(t, week.Records, 3)
	assert.Equal(t, asOf, week.AsOf)

	month, err := m.Snapshot(context.Background(), records.Window30d)
	require.NoError(t, err)
	assert.Len(t, month.Records, 4)
	assert.NotEqual(t, week.Fingerprint, month.Fingerprint)

	again, err := m.Snapshot(context.Background(), records.Window30d)
	require.NoError(t, err)
	assert.Equal(t, month.Fingerprint, again.Fingerprint)
}

func TestMemory_ReplaceAndClose(t *testing.T) {
	m := NewMemory(nil, WithClock(fixedClock))
	before, err := m.Snapshot(context.Background(), records.WindowAll)
	require.NoError(t, err)
	assert.Empty(t, before.Records)

	m.Replace(Document{Records: sampleRecords()})
	after, err := m.Snapshot(context.Background(), records.WindowAll)
	require.NoError(t, err)
	assert.Len(t, after.Records, 4)

	require.NoError(t, m.Close())
	_, err = m.Snapshot(context.Background(), records.WindowAll)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, errcode.SourceUnavailable, errcode.Of(err))
	assert.Error(t, m.Ping(context.Background()))
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory(nil).Snapshot(ctx, records.WindowAll)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name       string
		format     Format
		compressed bool
		wantErr    bool
	}{
		{"records.json", FormatJSON, false, false},
		{"records.YAML", FormatYAML, false, false},
		{"records.yml.sz", FormatYAML, true, false},
		{"records.json.sz", FormatJSON, true, false},
		{"records.csv", 0, false, true},
		{"records.sz", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c, err := FormatOf(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.format, f)
			assert.Equal(t, tt.compressed, c)
		})
	}
}

func TestDocumentRoundTripFormats(t *testing.T) {
	doc := &Document{AsOf: asOf, Records: sampleRecords()}
	want, err := records.Fingerprint(doc.Records)
	require.NoError(t, err)

	for _, name := range []string{"a.json", "a.yaml", "a.json.sz", "a.yml.sz"} {
		t.Run(name, func(t *testing.T) {
			data, err := EncodeDocument(name, doc)
			require.NoError(t, err)
			got, err := DecodeDocument(name, data)
			require.NoError(t, err)
			assert.True(t, asOf.Equal(got.AsOf))
			fp, err := records.Fingerprint(got.Records)
			require.NoError(t, err)
			assert.Equal(t, want, fp)
		})
	}
}

func TestDecodeDocument_BareList(t *testing.T) {
	doc, err := DecodeDocument("x.json", []byte(`[{"id":"go","kind":"keyword"}]`))
	require.NoError(t, err)
	require.Len(t, doc.Records, 1)
	assert.True(t, doc.AsOf.IsZero())

	doc, err = DecodeDocument("x.yaml", []byte("- id: UC1\n  kind: channel\n"))
	require.NoError(t, err)
	require.Len(t, doc.Records, 1)
	assert.Equal(t, records.KindChannel, doc.Records[0].Kind)
}

func TestDecodeDocument_Corrupt(t *testing.T) {
	_, err := DecodeDocument("x.json.sz", []byte("not snappy"))
	assert.Error(t, err)
	_, err = DecodeDocument("x.json", []byte("{"))
	assert.Error(t, err)
}

func writeDoc(t *testing.T, path string, doc *Document) {
	t.Helper()
	data, err := EncodeDocument(path, doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestFile_LoadsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json.sz")
	writeDoc(t, path, &Document{AsOf: asOf, Records: sampleRecords()[:1]})

	f, err := NewFile(FileConfig{Path: path}, WithClock(fixedClock))
	require.NoError(t, err)
	require.NoError(t, f.Ping(context.Background()))

	snap, err := f.Snapshot(context.Background(), records.WindowAll)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 1)

	writeDoc(t, path, &Document{AsOf: asOf, Records: sampleRecords()})
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	snap, err = f.Snapshot(context.Background(), records.WindowAll)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 4)
}

func TestFile_Errors(t *testing.T) {
	_, err := NewFile(FileConfig{})
	assert.Error(t, err)
	_, err = NewFile(FileConfig{Path: "records.txt"})
	assert.Error(t, err)

	f, err := NewFile(FileConfig{Path: filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)
	_, err = f.Snapshot(context.Background(), records.WindowAll)
	assert.Equal(t, errcode.SourceUnavailable, errcode.Of(err))
	assert.Error(t, f.Ping(context.Background()))
}

type fakeS3 struct {
	etag  string
	body  []byte
	gets  atomic.Int64
	heads atomic.Int64
	err   error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.body)), ETag: aws.String(f.etag)}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.heads.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.HeadObjectOutput{ETag: aws.String(f.etag)}, nil
}

func TestS3_CachesByETag(t *testing.T) {
	body, err := EncodeDocument("snap.yaml", &Document{AsOf: asOf, Records: sampleRecords()})
	require.NoError(t, err)
	fake := &fakeS3{etag: `"v1"`, body: body}

	src, err := NewS3WithClient(fake, "bucket", "exports/snap.yaml")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		snap, err := src.Snapshot(context.Background(), records.Window7d)
		require.NoError(t, err)
		assert.Len(t, snap.Records, 3)
	}
	assert.Equal(t, int64(1), fake.gets.Load())

	fake.etag = `"v2"`
	fake.body, err = EncodeDocument("snap.yaml", &Document{AsOf: asOf, Records: sampleRecords()[:2]})
	require.NoError(t, err)
	snap, err := src.Snapshot(context.Background(), records.Window7d)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 2)
	assert.Equal(t, int64(2), fake.gets.Load())
}

func TestS3_Errors(t *testing.T) {
	_, err := NewS3WithClient(&fakeS3{}, "", "k.json")
	assert.Error(t, err)

	fake := &fakeS3{err: errors.New("access denied")}
	src, err := NewS3WithClient(fake, "b", "k.json")
	require.NoError(t, err)
	_, err = src.Snapshot(context.Background(), records.WindowAll)
	assert.Equal(t, errcode.SourceUnavailable, errcode.Of(err))
	assert.Error(t, src.Ping(context.Background()))
}

func TestOpen(t *testing.T) {
	src, err := Open(context.Background(), Config{})
	require.NoError(t, err)
	assert.Equal(t, TypeMemory, src.Name())

	_, err = Open(context.Background(), Config{Type: "ftp"})
	assert.Error(t, err)

	_, err = Open(context.Background(), Config{Type: TypePostgres, Postgres: PostgresConfig{URL: "://bad"}})
	assert.Error(t, err)
}

func TestPostgresSQL(t *testing.T) {
	assert.NotContains(t, selectSQL(`"content_records"`, false), "WHERE")
	bounded := selectSQL(`"content_records"`, true)
	assert.Contains(t, bounded, "published_at >= $1")
	assert.True(t, strings.HasSuffix(bounded, "ORDER BY kind, id"))
	assert.Contains(t, createTableSQL(`"x"`), "PRIMARY KEY (kind, id)")
}
