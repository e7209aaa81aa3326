package index

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JohnDeved/otrkey-cli/internal/catalog"
	"github.com/JohnDeved/otrkey-cli/internal/client"
)

func newMirrorServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/good", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`<a href="A_01.01.25_10-00_x_30_TVOON_DE.mpg.avi.otrkey">A</a>
			<a href="B_01.01.25_10-00_x_30_TVOON_DE.mpg.mp4.otrkey">B</a>`))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`<p>maintenance</p>`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawler_CrawlAll(t *testing.T) {
	var hits atomic.Int64
	srv := newMirrorServer(t, &hits)
	db := openTestDB(t)

	mirrors := []catalog.Mirror{
		{Name: "good", SearchURL: "https://g/{query}", ListURL: srv.URL + "/good"},
		{Name: "empty", SearchURL: "https://e/{query}", ListURL: srv.URL + "/empty"},
		{Name: "broken", SearchURL: "https://b/{query}", ListURL: srv.URL + "/broken"},
		{Name: "nolist", SearchURL: "https://n/{query}"},
	}
	require.NoError(t, db.ReplaceMirrors(mirrors))
	require.NoError(t, db.ReplaceCatalog([]catalog.Row{
		{Mirror: "empty", FileName: "cached-empty.otrkey"},
		{Mirror: "broken", FileName: "cached-broken.otrkey"},
	}))

	cr := NewCrawler(client.New(1000, ""), db, time.Hour)
	cr.SetWorkers(2)
	var calls atomic.Int64
	cr.SetProgressCallback(func(CrawlProgress) { calls.Add(1) })

	require.NoError(t, cr.CrawlAll(context.Background(), mirrors))

	p := cr.Progress()
	require.Equal(t, int64(3), p.MirrorsDone)
	require.Equal(t, int64(2), p.FilesFound)
	require.Equal(t, int64(2), p.Fallbacks)
	require.Greater(t, calls.Load(), int64(0))

	rows, err := db.Rows()
	require.NoError(t, err)
	require.Equal(t, []catalog.Row{
		{Mirror: "broken", FileName: "cached-broken.otrkey"},
		{Mirror: "empty", FileName: "cached-empty.otrkey"},
		{Mirror: "good", FileName: "A_01.01.25_10-00_x_30_TVOON_DE.mpg.avi.otrkey"},
		{Mirror: "good", FileName: "B_01.01.25_10-00_x_30_TVOON_DE.mpg.mp4.otrkey"},
	}, rows)

	// Only the successful mirror is fresh; a second run skips it.
	before := hits.Load()
	cr2 := NewCrawler(client.New(1000, ""), db, time.Hour)
	require.NoError(t, cr2.CrawlAll(context.Background(), mirrors))
	require.Equal(t, before+2, hits.Load())
	require.Equal(t, int64(1), cr2.Progress().Skipped)

	// Forced runs fetch everything again.
	cr3 := NewCrawler(client.New(1000, ""), db, time.Hour)
	cr3.SetForce(true)
	require.NoError(t, cr3.CrawlAll(context.Background(), mirrors))
	require.Equal(t, before+5, hits.Load())
}

func TestCrawler_Cancelled(t *testing.T) {
	var hits atomic.Int64
	srv := newMirrorServer(t, &hits)
	db := openTestDB(t)

	mirrors := []catalog.Mirror{{Name: "good", ListURL: srv.URL + "/good"}}
	require.NoError(t, db.ReplaceMirrors(mirrors))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewCrawler(client.New(1000, ""), db, time.Hour).CrawlAll(ctx, mirrors)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, int64(0), hits.Load())
}

func TestCrawler_CrawlAllSucceedsWithLiveContext(t *testing.T) {
	var hits atomic.Int64
	srv := newMirrorServer(t, &hits)
	db := openTestDB(t)
	cr := NewCrawler(client.New(1000, ""), db, time.Hour)

	require.NoError(t, cr.CrawlAll(context.Background(), []catalog.Mirror{{Name: "a"}}))
	require.NoError(t, cr.CrawlAll(context.Background(), nil))

	mirrors := []catalog.Mirror{{Name: "good", ListURL: srv.URL + "/good"}}
	require.NoError(t, db.ReplaceMirrors(mirrors))
	require.NoError(t, cr.CrawlAll(context.Background(), mirrors))
	require.Equal(t, int64(1), hits.Load())
}
