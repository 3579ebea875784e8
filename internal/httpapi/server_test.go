package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/domedit"
	"github.com/hazyhaar/domedit/internal/dom/domtest"
)

func setup(t *testing.T) (*httptest.Server, *domedit.Engine) {
	t.Helper()
	f := domtest.New()
	f.Leaf("el_a", "hello")
	f.Leaf("el_b", "world")
	e := domedit.New(nil, nil)
	e.Attach(f)
	t.Cleanup(e.Stop)

	srv := httptest.NewServer(New(e, "", 0, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, e
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := setup(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSelectAndList(t *testing.T) {
	srv, _ := setup(t)

	resp := post(t, srv.URL+"/v1/selection", map[string]string{"tag": "el_a"})
	var sel struct {
		Index int `json:"index"`
	}
	decodeBody(t, resp, &sel)
	if resp.StatusCode != http.StatusOK || sel.Index != 0 {
		t.Fatalf("status=%d index=%d", resp.StatusCode, sel.Index)
	}

	listResp, err := http.Get(srv.URL + "/v1/selection")
	if err != nil {
		t.Fatal(err)
	}
	var list struct {
		Count   int                     `json:"count"`
		Targets []domedit.SelectionInfo `json:"targets"`
	}
	decodeBody(t, listResp, &list)
	if list.Count != 1 || list.Targets[0].Tag != "el_a" {
		t.Fatalf("list = %+v", list)
	}
}

func TestSelectUnknownTag(t *testing.T) {
	srv, _ := setup(t)
	resp := post(t, srv.URL+"/v1/selection", map[string]string{"tag": "el_missing"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestSessionFlow(t *testing.T) {
	srv, e := setup(t)
	if _, err := e.SelectTag("el_a"); err != nil {
		t.Fatal(err)
	}

	resp := post(t, srv.URL+"/v1/session", map[string]any{"action": "open"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("open status = %d", resp.StatusCode)
	}

	resp = post(t, srv.URL+"/v1/session/style",
		map[string]string{"property": "color", "value": "red", "label": "Color"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("style status = %d", resp.StatusCode)
	}

	resp = post(t, srv.URL+"/v1/session", map[string]any{"action": "apply"})
	var applied struct {
		Committed []json.RawMessage `json:"committed"`
	}
	decodeBody(t, resp, &applied)
	if len(applied.Committed) != 1 {
		t.Fatalf("committed = %d, want 1", len(applied.Committed))
	}

	// Style without an open session conflicts.
	resp = post(t, srv.URL+"/v1/session/style",
		map[string]string{"property": "color", "value": "blue"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("style-without-session status = %d, want 409", resp.StatusCode)
	}
}

func TestRemoveStaleIndexIs404(t *testing.T) {
	srv, _ := setup(t)
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/selection/7", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestUndoCommitTier(t *testing.T) {
	srv, e := setup(t)
	if _, err := e.SelectTag("el_a"); err != nil {
		t.Fatal(err)
	}
	if err := e.OpenSession(); err != nil {
		t.Fatal(err)
	}
	e.SetProperty("color", "red", "Color")
	e.ApplySession()

	resp := post(t, srv.URL+"/v1/undo", map[string]string{"tier": "commit"})
	var out struct {
		Done bool `json:"done"`
	}
	decodeBody(t, resp, &out)
	if !out.Done {
		t.Fatal("undo should succeed")
	}
}
