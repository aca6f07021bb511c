package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorplan/internal/planner/document"
	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/store"
	"floorplan/internal/planner/txn"
)

const planSVG = `<svg xmlns="http://www.w3.org/2000/svg">
  <rect id="Wall_top" x="0" y="-5" width="100" height="10"/>
  <rect id="Wall_bottom" x="0" y="55" width="100" height="10"/>
  <rect id="Wall_left" x="-5" y="0" width="10" height="60"/>
  <rect id="Wall_right" x="95" y="0" width="10" height="60"/>
  <rect id="Room_hall" x="5" y="5" width="90" height="50"/>
</svg>`

type env struct {
	app   *fiber.App
	docs  *document.Registry
	repo  *store.Repository
	files *store.FileStorage
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	db, err := store.OpenSQLite(filepath.Join(dir, "planner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := store.New(db)
	require.NoError(t, repo.Init(context.Background()))

	e := &env{
		app:   fiber.New(),
		docs:  document.NewRegistry(),
		repo:  repo,
		files: store.NewFileStorage(filepath.Join(dir, "plans")),
	}
	Register(e.app, NewPlanHandler(e.docs, repo, e.files, DefaultPlanConfig()), NewHealth(repo))
	return e
}

func (e *env) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func (e *env) upload(t *testing.T, svg string) string {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "plan.svg")
	require.NoError(t, err)
	_, err = part.Write([]byte(svg))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("name", "flat"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/plans", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	status, body := e.do(t, req)
	require.Equal(t, http.StatusCreated, status, string(body))

	var out struct {
		ID      string `json:"id"`
		Summary struct {
			Faces int `json:"faces"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.Summary.Faces)
	return out.ID
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodePlan(t *testing.T, body []byte) planPayload {
	t.Helper()
	var p planPayload
	require.NoError(t, json.Unmarshal(body, &p))
	return p
}

func TestCreateAndGet(t *testing.T) {
	e := newEnv(t)
	id := e.upload(t, planSVG)

	_, err := os.Stat(e.files.SourcePath(id))
	require.NoError(t, err)

	status, body := e.do(t, httptest.NewRequest(http.MethodGet, "/plans/"+id, nil))
	require.Equal(t, http.StatusOK, status)
	p := decodePlan(t, body)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "flat", p.Plan.Name)
	assert.True(t, p.CanUndo)
	assert.Len(t, p.Plan.Graph.Vertices, 4)
	assert.Len(t, p.Plan.Graph.Faces, 1)
}

func TestCreate_RequiresFile(t *testing.T) {
	e := newEnv(t)
	status, _ := e.do(t, httptest.NewRequest(http.MethodPost, "/plans", nil))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMoveUndoRedo(t *testing.T) {
	e := newEnv(t)
	id := e.upload(t, planSVG)

	var vid entity.ID
	require.NoError(t, func() error {
		doc, err := e.docs.Get(id)
		if err != nil {
			return err
		}
		return doc.Do(func(s *document.Session) error {
			vid = s.Graph().LiveIDs(entity.KindVertex)[0]
			return nil
		})
	}())

	status, body := e.do(t, jsonRequest(http.MethodPost, "/plans/"+id+"/vertices/"+strconv.FormatInt(int64(vid), 10)+"/move", `{"x":-20,"y":-20}`))
	require.Equal(t, http.StatusOK, status, string(body))
	p := decodePlan(t, body)
	for _, v := range p.Plan.Graph.Vertices {
		if v.ID == vid {
			assert.Equal(t, -20.0, v.X)
		}
	}

	status, _ = e.do(t, httptest.NewRequest(http.MethodPost, "/plans/"+id+"/undo", nil))
	require.Equal(t, http.StatusOK, status)
	status, _ = e.do(t, httptest.NewRequest(http.MethodPost, "/plans/"+id+"/redo", nil))
	require.Equal(t, http.StatusOK, status)
	status, _ = e.do(t, httptest.NewRequest(http.MethodPost, "/plans/"+id+"/redo", nil))
	assert.Equal(t, http.StatusConflict, status)

	status, _ = e.do(t, jsonRequest(http.MethodPost, "/plans/"+id+"/vertices/9999/move", `{"x":1}`))
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = e.do(t, jsonRequest(http.MethodPost, "/plans/"+id+"/vertices/abc/move", `{"x":1}`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSaveAndReopen(t *testing.T) {
	e := newEnv(t)
	id := e.upload(t, planSVG)

	status, body := e.do(t, httptest.NewRequest(http.MethodPost, "/plans/"+id+"/save", nil))
	require.Equal(t, http.StatusOK, status, string(body))
	svg, err := os.ReadFile(e.files.ExportPath(id))
	require.NoError(t, err)
	assert.Contains(t, string(svg), `<path id="face-`)

	require.NoError(t, e.docs.Close(id))
	status, body = e.do(t, httptest.NewRequest(http.MethodGet, "/plans/"+id+"/svg", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(svg), string(body))

	status, body = e.do(t, httptest.NewRequest(http.MethodGet, "/plans", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), id)

	status, _ = e.do(t, httptest.NewRequest(http.MethodGet, "/plans/missing", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	for _, path := range []string{"/health/live", "/health/ready", "/health/startup"} {
		status, _ := e.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, status, path)
	}

	app := fiber.New()
	app.Get("/ready", NewHealth(failingPinger{}).Ready)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusOf(document.ErrUnknownDocument))
	assert.Equal(t, http.StatusConflict, statusOf(&txn.StateError{Request: "x", Op: "commit"}))
	assert.Equal(t, http.StatusBadRequest, statusOf(txn.ErrInvalidParams))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("boom")))
}

func TestFaceAndLightSlot(t *testing.T) {
	e := newEnv(t)
	id := e.upload(t, planSVG)

	status, body := e.do(t, httptest.NewRequest(http.MethodGet, "/plans/"+id, nil))
	require.Equal(t, http.StatusOK, status)
	face := strconv.FormatInt(int64(decodePlan(t, body).Plan.Graph.Faces[0].ID), 10)

	status, body = e.do(t, jsonRequest(http.MethodPatch, "/plans/"+id+"/faces/"+face, `{"material":"#eee"}`))
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "#eee", decodePlan(t, body).Plan.Graph.Faces[0].Material)

	slot := `{"parent":` + face + `,"width":2,"height":1,"path":[` +
		`{"id":"a","curve":{"type":"line","from":{"x":10,"y":10},"to":{"x":40,"y":10}}}]}`
	status, body = e.do(t, jsonRequest(http.MethodPost, "/plans/"+id+"/lightslots", slot))
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Len(t, decodePlan(t, body).Plan.Graph.LightSlots, 1)

	status, _ = e.do(t, jsonRequest(http.MethodPost, "/plans/"+id+"/lightslots", `{"parent":`+face+`,"width":2,"height":1,"path":[]}`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDocs(t *testing.T) {
	e := newEnv(t)
	status, body := e.do(t, httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "Floor Plan Editor")

	status, body = e.do(t, httptest.NewRequest(http.MethodGet, "/docs", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "swagger-ui")
}

func TestPayloadValidation(t *testing.T) {
	e := newEnv(t)
	id := e.upload(t, planSVG)

	status, body := e.do(t, httptest.NewRequest(http.MethodGet, "/plans/"+id, nil))
	require.Equal(t, http.StatusOK, status)
	face := strconv.FormatInt(int64(decodePlan(t, body).Plan.Graph.Faces[0].ID), 10)
	path := `[{"id":"a","curve":{"type":"line","from":{"x":10,"y":10},"to":{"x":40,"y":10}}}]`

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"malformed json", http.MethodPost, "/plans/" + id + "/vertices/1/move", `{"x":`},
		{"slot without parent", http.MethodPost, "/plans/" + id + "/lightslots", `{"width":2,"path":` + path + `}`},
		{"slot with zero width", http.MethodPost, "/plans/" + id + "/lightslots", `{"parent":` + face + `,"width":0,"path":` + path + `}`},
		{"slot with negative tolerance", http.MethodPost, "/plans/" + id + "/lightslots", `{"parent":` + face + `,"width":2,"tolerance":-1,"path":` + path + `}`},
		{"material too long", http.MethodPatch, "/plans/" + id + "/faces/" + face, `{"material":"` + strings.Repeat("x", 65) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.do(t, jsonRequest(tt.method, tt.target, tt.body))
			assert.Equal(t, http.StatusBadRequest, status, string(body))
		})
	}
}

func TestReopen_ConcurrentRequestsShareDocument(t *testing.T) {
	e := newEnv(t)
	id := e.upload(t, planSVG)
	status, _ := e.do(t, httptest.NewRequest(http.MethodPost, "/plans/"+id+"/save", nil))
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, e.docs.Close(id))

	var wg sync.WaitGroup
	statuses := make([]int, 8)
	for i := range statuses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, "/plans/"+id, nil))
			if err == nil {
				statuses[i] = resp.StatusCode
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	for _, s := range statuses {
		assert.Equal(t, http.StatusOK, s)
	}
	assert.Equal(t, []string{id}, e.docs.IDs())
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	id := e.upload(t, planSVG)
	status, _ := e.do(t, httptest.NewRequest(http.MethodPost, "/plans/"+id+"/save", nil))
	require.Equal(t, http.StatusOK, status)

	status, _ = e.do(t, httptest.NewRequest(http.MethodDelete, "/plans/"+id, nil))
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, e.docs.IDs())
	_, err := os.Stat(e.files.PlanDir(id))
	assert.True(t, os.IsNotExist(err))

	status, _ = e.do(t, httptest.NewRequest(http.MethodGet, "/plans/"+id, nil))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = e.do(t, httptest.NewRequest(http.MethodDelete, "/plans/"+id, nil))
	assert.Equal(t, http.StatusNotFound, status)
}
