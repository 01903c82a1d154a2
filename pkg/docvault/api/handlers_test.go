package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeplm/docvault/pkg/docvault"
	"github.com/freeplm/docvault/pkg/docvault/api"
	"github.com/freeplm/docvault/pkg/docvault/repo/memory"
	memorystorage "github.com/freeplm/docvault/pkg/docvault/storage/memory"
)

func setupTestServer(t *testing.T) (docvault.Service, *httptest.Server) {
	t.Helper()

	svc, err := docvault.New(
		docvault.WithRepository(memory.New()),
		docvault.WithBlobStore(memorystorage.New()),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/documents", api.NewDocumentHandler(svc).Routes())
		r.Mount("/checkout", api.NewCheckOutHandler(svc).Routes())
		r.Mount("/workflow", api.NewWorkflowHandler(svc).Routes())
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return svc, server
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(fileField, fileName)
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(fileContent))
	require.NoError(t, err)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func createDocumentViaAPI(t *testing.T, server *httptest.Server) api.DocumentResponse {
	t.Helper()

	body, contentType := multipartBody(t, map[string]string{
		"owner":   "alice",
		"project": "apollo",
	}, "file", "spec.docx", "initial content")

	resp, err := http.Post(server.URL+"/api/v1/documents/", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var doc api.DocumentResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	return doc
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestCreateDocument(t *testing.T) {
	_, server := setupTestServer(t)

	doc := createDocumentViaAPI(t, server)

	assert.Regexp(t, `^DOC-\d{8}-[0-9A-F]{8}$`, doc.ObjectID)
	assert.Equal(t, "spec.docx", doc.FileName)
	assert.Equal(t, "alice", doc.Owner)
	assert.Equal(t, "Private", doc.Status)
	assert.Equal(t, "A.01", doc.CurrentRevision)
	assert.Equal(t, int64(len("initial content")), doc.FileSize)
	assert.False(t, doc.IsCheckedOut)
}

func TestCreateDocumentMissingFields(t *testing.T) {
	_, server := setupTestServer(t)

	t.Run("missing owner", func(t *testing.T) {
		body, contentType := multipartBody(t, nil, "file", "spec.docx", "x")
		resp, err := http.Post(server.URL+"/api/v1/documents/", contentType, body)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing file", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		require.NoError(t, writer.WriteField("owner", "alice"))
		require.NoError(t, writer.Close())

		resp, err := http.Post(server.URL+"/api/v1/documents/", writer.FormDataContentType(), body)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetDocument(t *testing.T) {
	_, server := setupTestServer(t)
	doc := createDocumentViaAPI(t, server)

	resp, err := http.Get(server.URL + "/api/v1/documents/" + doc.ObjectID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got api.DocumentResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, doc.ObjectID, got.ObjectID)
}

func TestGetDocumentNotFound(t *testing.T) {
	_, server := setupTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/documents/DOC-20260101-DEADBEEF")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDownloadContent(t *testing.T) {
	_, server := setupTestServer(t)
	doc := createDocumentViaAPI(t, server)

	resp, err := http.Get(server.URL + "/api/v1/documents/" + doc.ObjectID + "/content")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "initial content", string(data))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "spec.docx")
}

func TestDownloadContentUnknownRevision(t *testing.T) {
	_, server := setupTestServer(t)
	doc := createDocumentViaAPI(t, server)

	resp, err := http.Get(server.URL + "/api/v1/documents/" + doc.ObjectID + "/content?revision=Z.99")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearchDocumentsPagination(t *testing.T) {
	_, server := setupTestServer(t)

	for i := 0; i < 3; i++ {
		createDocumentViaAPI(t, server)
	}

	resp, err := http.Get(server.URL + "/api/v1/documents/?owner=alice&page=1&page_size=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var search api.SearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&search))
	assert.Equal(t, 3, search.TotalCount)
	assert.Equal(t, 2, search.TotalPages)
	assert.Equal(t, 1, search.PageNumber)
	assert.Equal(t, 2, search.PageSize)
	assert.Len(t, search.Items, 2)

	resp, err = http.Get(server.URL + "/api/v1/documents/?owner=alice&page=2&page_size=2")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&search))
	assert.Len(t, search.Items, 1)
	assert.Equal(t, 2, search.PageNumber)
}

func TestCheckOutLifecycleViaAPI(t *testing.T) {
	_, server := setupTestServer(t)
	doc := createDocumentViaAPI(t, server)
	base := server.URL + "/api/v1/checkout/" + doc.ObjectID

	// alice checks out
	resp := postJSON(t, base+"/checkout", api.CheckOutRequest{UserID: "alice", MachineName: "laptop"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.CheckOutResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "A.01", out.RevisionLabel)

	// bob is rejected with a conflict
	resp = postJSON(t, base+"/checkout", api.CheckOutRequest{UserID: "bob"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// lock state is visible
	statusResp, err := http.Get(base + "/status")
	require.NoError(t, err)
	defer statusResp.Body.Close()

	var status api.CheckOutStatusResponse
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.True(t, status.IsLocked)
	assert.Equal(t, "alice", status.LockedBy)
	assert.Equal(t, "laptop", status.MachineName)

	// alice checks in new content
	body, contentType := multipartBody(t, map[string]string{
		"user_id": "alice",
		"comment": "revision two",
	}, "file", "spec.docx", "updated content")

	checkinResp, err := http.Post(base+"/checkin", contentType, body)
	require.NoError(t, err)
	defer checkinResp.Body.Close()
	require.Equal(t, http.StatusOK, checkinResp.StatusCode)

	var in api.CheckInResponse
	require.NoError(t, json.NewDecoder(checkinResp.Body).Decode(&in))
	assert.Equal(t, "A.02", in.NewRevision)
	assert.Equal(t, "A.01", in.PreviousRevision)
	assert.Empty(t, in.StatusError)
}

func TestCheckInWithoutLock(t *testing.T) {
	_, server := setupTestServer(t)
	doc := createDocumentViaAPI(t, server)

	body, contentType := multipartBody(t, map[string]string{"user_id": "alice"}, "file", "spec.docx", "x")
	resp, err := http.Post(server.URL+"/api/v1/checkout/"+doc.ObjectID+"/checkin", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCheckInByNonHolderForbidden(t *testing.T) {
	svc, server := setupTestServer(t)
	doc := createDocumentViaAPI(t, server)

	_, err := svc.CheckOut(context.Background(), docvault.CheckOutRequest{ObjectID: doc.ObjectID, UserID: "alice"})
	require.NoError(t, err)

	body, contentType := multipartBody(t, map[string]string{"user_id": "bob"}, "file", "spec.docx", "x")
	resp, err := http.Post(server.URL+"/api/v1/checkout/"+doc.ObjectID+"/checkin", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCheckInInvalidStatusStillCommits(t *testing.T) {
	svc, server := setupTestServer(t)
	doc := createDocumentViaAPI(t, server)

	_, err := svc.CheckOut(context.Background(), docvault.CheckOutRequest{ObjectID: doc.ObjectID, UserID: "alice"})
	require.NoError(t, err)

	body, contentType := multipartBody(t, map[string]string{
		"user_id":    "alice",
		"new_status": "Released",
	}, "file", "spec.docx", "x")

	resp, err := http.Post(server.URL+"/api/v1/checkout/"+doc.ObjectID+"/checkin", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var in api.CheckInResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&in))
	assert.Equal(t, "A.02", in.NewRevision)
	assert.NotEmpty(t, in.StatusError)
}

func TestCancelCheckOut(t *testing.T) {
	_, server := setupTestServer(t)
	doc := createDocumentViaAPI(t, server)
	base := server.URL + "/api/v1/checkout/" + doc.ObjectID

	resp := postJSON(t, base+"/checkout", api.CheckOutRequest{UserID: "alice"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// non-holder cannot cancel
	resp = postJSON(t, base+"/cancel", api.CheckOutRequest{UserID: "bob"})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = postJSON(t, base+"/cancel", api.CheckOutRequest{UserID: "alice"})
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	statusResp, err := http.Get(base + "/status")
	require.NoError(t, err)
	defer statusResp.Body.Close()

	var status api.CheckOutStatusResponse
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.False(t, status.IsLocked)
}

func TestChangeStatusAndHistory(t *testing.T) {
	_, server := setupTestServer(t)
	doc := createDocumentViaAPI(t, server)
	base := server.URL + "/api/v1/workflow/" + doc.ObjectID

	resp := postJSON(t, base+"/status", api.ChangeStatusRequest{
		NewStatus: "InWork",
		UserID:    "alice",
		Comment:   "starting work",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var change api.StatusChangeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&change))
	assert.Equal(t, "Private", change.OldStatus)
	assert.Equal(t, "InWork", change.NewStatus)

	// invalid transition is unprocessable
	resp = postJSON(t, base+"/status", api.ChangeStatusRequest{NewStatus: "Obsolete", UserID: "alice"})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// unknown status name is a bad request
	resp = postJSON(t, base+"/status", api.ChangeStatusRequest{NewStatus: "Draft", UserID: "alice"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	historyResp, err := http.Get(base + "/history")
	require.NoError(t, err)
	defer historyResp.Body.Close()
	require.Equal(t, http.StatusOK, historyResp.StatusCode)

	var history []api.HistoryEntryResponse
	require.NoError(t, json.NewDecoder(historyResp.Body).Decode(&history))
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].SequenceID)
	assert.Equal(t, "starting work", history[0].Comment)
}

func TestListRevisionsViaAPI(t *testing.T) {
	svc, server := setupTestServer(t)
	doc := createDocumentViaAPI(t, server)
	ctx := context.Background()

	_, err := svc.CheckOut(ctx, docvault.CheckOutRequest{ObjectID: doc.ObjectID, UserID: "alice"})
	require.NoError(t, err)
	_, err = svc.CheckIn(ctx, docvault.CheckInRequest{
		ObjectID: doc.ObjectID,
		UserID:   "alice",
		Content:  strings.NewReader("v2"),
	})
	require.NoError(t, err)

	resp, err := http.Get(server.URL + "/api/v1/documents/" + doc.ObjectID + "/revisions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var revisions []api.RevisionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&revisions))
	require.Len(t, revisions, 2)
	assert.Equal(t, "A.01", revisions[0].Label)
	assert.Equal(t, "A.02", revisions[1].Label)
}
