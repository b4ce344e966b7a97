package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const atomLine = "ATOM      1  CA  ALA A   1       1.000   2.000   3.000  1.00 80.00           C"

func testEndpoints(url string) Endpoints {
	return Endpoints{
		AlphaFold2:  url + "/af2",
		OpenFold3:   url + "/of3",
		RFdiffusion: url + "/rfd",
		ProteinMPNN: url + "/mpnn",
		Multimer:    url + "/multimer",
		Status:      url + "/status",
	}
}

func TestNIMClient_SubmitEnsemble(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/af2", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode([]string{atomLine, atomLine, atomLine, atomLine, atomLine})
	}))
	defer srv.Close()

	c := NewNIMClient(testEndpoints(srv.URL), "secret", time.Second)
	res, err := c.Submit(context.Background(), JobSpec{Model: ModelAlphaFold2, Sequence: "MKTAYIAKQR"})
	require.NoError(t, err)

	assert.Equal(t, SubmitEnsemble, res.Kind)
	assert.Len(t, res.Payload.Structures, 5)
	assert.Equal(t, "MKTAYIAKQR", got["sequence"])
	assert.Equal(t, "mmseqs2", got["algorithm"])
}

func TestNIMClient_SubmitAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(RequestIDHeader, "req-42")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewNIMClient(testEndpoints(srv.URL), "", time.Second)
	res, err := c.Submit(context.Background(), JobSpec{Model: ModelRFdiffusion, Structure: atomLine, Contigs: "A1-10/0 50"})
	require.NoError(t, err)
	assert.Equal(t, SubmitAccepted, res.Kind)
	assert.Equal(t, JobHandle{ID: "req-42", Endpoint: srv.URL + "/status", Model: ModelRFdiffusion}, res.Handle)
}

func TestNIMClient_SubmitServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid contigs", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewNIMClient(testEndpoints(srv.URL), "", time.Second)
	_, err := c.Submit(context.Background(), JobSpec{Model: ModelRFdiffusion})
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusUnprocessableEntity, svcErr.StatusCode)
	assert.Contains(t, svcErr.Message, "invalid contigs")
}

func TestNIMClient_SubmitSingleStructures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rfd":
			_ = json.NewEncoder(w).Encode(map[string]string{"output_pdb": atomLine})
		case "/mpnn":
			var req proteinMPNNRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"A"}, req.InputPDBChains)
			assert.Equal(t, []float64{0.1}, req.SamplingTemp)
			_ = json.NewEncoder(w).Encode(map[string]string{"mfasta": ">s1\nMKT\n"})
		case "/of3":
			var req openFoldRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "proj", req.RequestID)
			assert.Equal(t, "key,sequence\n-1,MKTAYIAKQR", req.Inputs[0].Molecules[0].MSA.MainDB.CSV.Alignment)
			_, _ = w.Write([]byte(`{"outputs":[{"structures_with_scores":[{"structure":"` + atomLine + `"}]}]}`))
		}
	}))
	defer srv.Close()
	c := NewNIMClient(testEndpoints(srv.URL), "", time.Second)
	ctx := context.Background()

	res, err := c.Submit(ctx, JobSpec{Model: ModelRFdiffusion, Structure: atomLine})
	require.NoError(t, err)
	assert.Equal(t, SubmitImmediate, res.Kind)
	assert.Equal(t, atomLine, res.Payload.Best())

	res, err = c.Submit(ctx, JobSpec{Model: ModelProteinMPNN, Structure: atomLine, NumSequences: 2, SamplingTemp: 0.1})
	require.NoError(t, err)
	assert.Equal(t, ">s1\nMKT\n", res.Payload.Text)

	res, err = c.Submit(ctx, JobSpec{Model: ModelOpenFold3, Sequence: "MKTAYIAKQR", RequestID: "proj"})
	require.NoError(t, err)
	assert.Equal(t, atomLine, res.Payload.Best())
}

func multimerZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("ranked_0.json")
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(f).Encode([]string{atomLine + "\n", "END\n"}))
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestNIMClient_Poll(t *testing.T) {
	archive := multimerZip(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status/pending":
			w.WriteHeader(http.StatusAccepted)
		case "/status/done":
			_, _ = w.Write(archive)
		case "/status/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.Error(w, "model crashed", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	c := NewNIMClient(testEndpoints(srv.URL), "", time.Second)
	ctx := context.Background()
	h := func(id string) JobHandle { return JobHandle{ID: id, Endpoint: srv.URL + "/status", Model: ModelAFMultimer} }

	res, err := c.Poll(ctx, h("pending"))
	require.NoError(t, err)
	assert.Equal(t, PollPending, res.State)

	res, err = c.Poll(ctx, h("done"))
	require.NoError(t, err)
	require.Equal(t, PollCompleted, res.State)
	assert.Equal(t, atomLine+"\nEND\n", res.Payload.Best())

	_, err = c.Poll(ctx, h("busy"))
	assert.Error(t, err)

	res, err = c.Poll(ctx, h("broken"))
	require.NoError(t, err)
	assert.Equal(t, PollFailed, res.State)
	assert.Contains(t, res.Message, "model crashed")

	payload, err := c.Fetch(ctx, h("done"))
	require.NoError(t, err)
	assert.Len(t, payload.Structures, 1)

	_, err = c.Fetch(ctx, h("pending"))
	assert.Error(t, err)
}

func TestNIMClient_UnknownModel(t *testing.T) {
	c := NewNIMClient(Endpoints{}, "", time.Second)
	_, err := c.Submit(context.Background(), JobSpec{Model: "esmfold"})
	assert.ErrorContains(t, err, "unknown model")
}
