package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"webshare/room-api/internal/registry"
	"webshare/room-api/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saveFailStore rejects every write without reading the body, the way an
// unreachable backend would.
type saveFailStore struct{ storage.Store }

func (saveFailStore) Save(context.Context, string, string, io.Reader) (int64, error) {
	return 0, errors.New("backend unavailable")
}

func folderUploadRequest(t *testing.T, roomID, code string, names ...string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, name := range names {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("payload"))
		require.NoError(t, err)
	}

	require.NoError(t, mw.WriteField("folderName", "stuff"))
	require.NoError(t, mw.WriteField("code", code))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload-folder/"+roomID, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFolderUpload(t *testing.T) {
	a, _ := newTestAPI(t)
	ctx := context.Background()

	room, err := a.Rooms.Create(ctx, registry.CreateRoomOpts{CustomID: "r1", TTLMinutes: 10})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, folderUploadRequest(t, "r1", room.Code, "a.txt", "b.txt"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Folder struct {
				FileCount int  `json:"fileCount"`
				IsFolder  bool `json:"isFolder"`
			} `json:"folder"`
			RoomSize int64 `json:"roomSize"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Folder.IsFolder)
	assert.Equal(t, 2, resp.Data.Folder.FileCount)
	assert.Positive(t, resp.Data.RoomSize)

	files, err := a.Files.FindByRoom(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, files, 1, "the folder counts as a single file")
	assert.Equal(t, "application/zip", files[0].MimeType)
}

func TestFolderUploadFailedSaveReleasesZipWorker(t *testing.T) {
	a, _ := newTestAPI(t)

	room, err := a.Rooms.Create(context.Background(), registry.CreateRoomOpts{CustomID: "r1", TTLMinutes: 10})
	require.NoError(t, err)

	a.Blobs = saveFailStore{}

	before := runtime.NumGoroutine()

	for range 5 {
		w := httptest.NewRecorder()
		a.Router.ServeHTTP(w, folderUploadRequest(t, "r1", room.Code, "a.txt"))
		require.Equal(t, http.StatusInternalServerError, w.Code)
	}

	// Give the unblocked zip goroutines a moment to unwind
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && runtime.NumGoroutine() > before {
		time.Sleep(10 * time.Millisecond)
	}

	assert.LessOrEqual(t, runtime.NumGoroutine(), before,
		"zip goroutines must exit when the blob write fails")
}
