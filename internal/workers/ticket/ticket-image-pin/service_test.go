package ticketimagepin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketpin-workers/internal/common/errors"
	"ticketpin-workers/internal/common/logger"
	"ticketpin-workers/internal/fulfillment"
	"ticketpin-workers/internal/pipeline"
)

// ==========================
// End-to-end Service Tests
// ==========================

func newUpstreams(t *testing.T, pinStatus int, pinBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"url":"https://img.example/ticket.png"}]}`))
	})
	mux.HandleFunc("/pinning/pinJSONToIPFS", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(pinStatus)
		_, _ = w.Write([]byte(pinBody))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newServiceWithPipeline(t *testing.T, server *httptest.Server, recorder fulfillment.Recorder, encoding string) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Pipeline.ImageBaseURL = server.URL + "/v1"
	cfg.Pipeline.PinningBaseURL = server.URL
	cfg.Pipeline.Encoding = encoding
	cfg.Pipeline.CallTimeout = 2 * time.Second

	p, err := pipeline.Build(cfg.Pipeline, pipeline.StaticCredentials{
		ImageAPIKey:   "sk-test",
		PinningAPIKey: "pinata-jwt",
	}, logger.NewTestLogger(t))
	require.NoError(t, err)

	return NewService(ServiceDependencies{
		Logger:   logger.NewTestLogger(t),
		Runner:   p,
		Recorder: recorder,
		NewRunID: func() string { return "run-fixed" },
	}, cfg)
}

func TestService_Execute_PinsAndRecords(t *testing.T) {
	server := newUpstreams(t, http.StatusOK, `{"IpfsHash":"Qm123","PinSize":42}`)

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlMock.ExpectExec("INSERT INTO ticket_fulfillments").
		WithArgs("run-fixed", "req-1", "Berlin", "Jazz Night", "succeeded",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"worker", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	recorder := fulfillment.NewMultiRecorder(logger.NewTestLogger(t), fulfillment.NewPostgresRecorder(db))
	svc := newServiceWithPipeline(t, server, recorder, pipeline.EncodingUTF8)

	output, err := svc.Execute(context.Background(), &Input{RequestID: "req-1", Location: "Berlin", Keyword: "Jazz Night"})
	require.NoError(t, err)

	assert.Equal(t, &Output{
		RequestID:   "req-1",
		ContentHash: "Qm123",
		Result:      "0x516d313233",
		Encoding:    pipeline.EncodingUTF8,
		RunID:       "run-fixed",
	}, output)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestService_Execute_CBOREncoding(t *testing.T) {
	server := newUpstreams(t, http.StatusOK, `{"IpfsHash":"Qm123"}`)
	svc := newServiceWithPipeline(t, server, nil, pipeline.EncodingCBOR)

	output, err := svc.Execute(context.Background(), &Input{RequestID: "req-1"})
	require.NoError(t, err)
	assert.Equal(t, "0x65516d313233", output.Result)
	assert.Equal(t, pipeline.EncodingCBOR, output.Encoding)
}

func TestService_Execute_PinRejectedSurfacesUpstreamMessage(t *testing.T) {
	server := newUpstreams(t, http.StatusUnauthorized, `{"error":{"reason":"INVALID_CREDENTIALS","details":"Invalid API key"}}`)
	svc := newServiceWithPipeline(t, server, nil, pipeline.EncodingUTF8)

	_, err := svc.Execute(context.Background(), &Input{RequestID: "req-2"})
	require.Error(t, err)

	stdErr := errors.Normalize(err)
	assert.Equal(t, errors.ErrCodePinningFailed, stdErr.Code)
	assert.Equal(t, "Invalid API key", stdErr.Message)
	assert.Equal(t, "run-fixed", stdErr.Metadata["runId"])
	assert.Equal(t, string(pipeline.StagePublication), stdErr.Metadata["stage"])
}
