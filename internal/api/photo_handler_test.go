package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// multipartBody builds a multipart request body with one "photos" part per
// given file name.
func multipartBody(t *testing.T, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range filenames {
		part, err := writer.CreateFormFile("photos", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("jpeg bytes for " + name))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

// waitForUploads polls the progress endpoint until the drain goes idle.
func waitForUploads(t *testing.T, env *handlerEnv, projectURL string) UploadProgressResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, projectURL+"/photos/progress", nil)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var progress UploadProgressResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&progress))
		if !progress.Active && progress.Total > 0 {
			return progress
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("uploads did not finish in time")
	return UploadProgressResponse{}
}

func TestUploadPhotos(t *testing.T) {
	t.Parallel()

	t.Run("accepts files and drains them in the background", func(t *testing.T) {
		t.Parallel()
		env, err := newHandlerEnv(0)
		require.NoError(t, err)
		project, err := env.seedProject("")
		require.NoError(t, err)
		projectURL := fmt.Sprintf("/api/projects/%s", project.ID)

		body, contentType := multipartBody(t, "beach.jpg", "cabin.jpg", "dog.png")
		req := httptest.NewRequest(http.MethodPost, projectURL+"/photos", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusAccepted, rr.Code)

		progress := waitForUploads(t, env, projectURL)
		assert.Equal(t, 3, progress.Total)
		assert.Equal(t, 3, progress.Completed)
		assert.Equal(t, 0, progress.Failed)

		photos, err := env.photos.FindByProject(req.Context(), project.ID)
		require.NoError(t, err)
		require.Len(t, photos, 3)
		for i, photo := range photos {
			assert.Equal(t, i, photo.SortOrder)
		}
	})

	t.Run("rejects a request with no files", func(t *testing.T) {
		t.Parallel()
		env, err := newHandlerEnv(0)
		require.NoError(t, err)
		project, err := env.seedProject("")
		require.NoError(t, err)

		body, contentType := multipartBody(t)
		url := fmt.Sprintf("/api/projects/%s/photos", project.ID)
		req := httptest.NewRequest(http.MethodPost, url, body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects a non-multipart body", func(t *testing.T) {
		t.Parallel()
		env, err := newHandlerEnv(0)
		require.NoError(t, err)
		project, err := env.seedProject("")
		require.NoError(t, err)

		url := fmt.Sprintf("/api/projects/%s/photos", project.ID)
		req := httptest.NewRequest(http.MethodPost, url, bytes.NewBufferString("not multipart"))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestListPhotos(t *testing.T) {
	t.Parallel()

	t.Run("returns photos in sort order with presigned URLs", func(t *testing.T) {
		t.Parallel()
		env, err := newHandlerEnv(0)
		require.NoError(t, err)
		project, err := env.seedProject("")
		require.NoError(t, err)
		projectURL := fmt.Sprintf("/api/projects/%s", project.ID)

		body, contentType := multipartBody(t, "first.jpg", "second.jpg")
		uploadReq := httptest.NewRequest(http.MethodPost, projectURL+"/photos", body)
		uploadReq.Header.Set("Content-Type", contentType)
		env.router.ServeHTTP(httptest.NewRecorder(), uploadReq)
		waitForUploads(t, env, projectURL)

		req := httptest.NewRequest(http.MethodGet, projectURL+"/photos", nil)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var resp []PhotoResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.Len(t, resp, 2)
		assert.Equal(t, 0, resp[0].SortOrder)
		assert.Equal(t, 1, resp[1].SortOrder)
		for _, photo := range resp {
			assert.Contains(t, photo.URL, "https://storage.test/")
		}
	})

	t.Run("returns an empty list for a project with no photos", func(t *testing.T) {
		t.Parallel()
		env, err := newHandlerEnv(0)
		require.NoError(t, err)
		project, err := env.seedProject("")
		require.NoError(t, err)

		url := fmt.Sprintf("/api/projects/%s/photos", project.ID)
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, "[]", rr.Body.String())
	})
}
