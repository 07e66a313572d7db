package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/mensetsu/internal/audio"
	"github.com/foxseedlab/mensetsu/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	speechAPIEndpointPort = 443
	cloudPlatformScope    = "https://www.googleapis.com/auth/cloud-platform"
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

// CloudSpeechTranscriber streams candidate audio to Speech-to-Text v2. Each
// StartStreaming call owns its own gRPC client so one interview's stream
// never shares a connection with another's.
type CloudSpeechTranscriber struct {
	cfg CloudSpeechConfig
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) transcriber.Transcriber {
	cfg.Location = strings.TrimSpace(cfg.Location)
	cfg.Model = strings.TrimSpace(cfg.Model)
	return &CloudSpeechTranscriber{cfg: cfg}
}

func (t *CloudSpeechTranscriber) StartStreaming(ctx context.Context, streamID, language string, receiver transcriber.ResultReceiver) (transcriber.StreamWriter, error) {
	if language == "" {
		language = t.cfg.Language
	}
	slog.Info("starting speech stream", "stream_id", streamID, "location", t.cfg.Location, "language", language, "model", t.cfg.Model)

	client, err := t.newClient(ctx)
	if err != nil {
		return nil, err
	}
	w := &streamWriter{
		streamID: streamID,
		receiver: receiver,
		client:   client,
		dial: func() (speechpb.Speech_StreamingRecognizeClient, error) {
			return dialStream(ctx, client, t.configRequest(language))
		},
	}
	stream, err := w.dial()
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	w.stream = stream
	w.receive(stream)
	slog.Info("speech stream ready", "stream_id", streamID)
	return w, nil
}

func (t *CloudSpeechTranscriber) newClient(ctx context.Context) (*speech.Client, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(t.cfg.CredentialsJSON),
		Scopes:          []string{cloudPlatformScope},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}
	opts := []option.ClientOption{option.WithAuthCredentials(creds)}
	if t.cfg.Location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", t.cfg.Location, speechAPIEndpointPort)))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return client, nil
}

// configRequest is the first message of every stream, including the ones
// opened after the service cuts a long answer off.
func (t *CloudSpeechTranscriber) configRequest(language string) *speechpb.StreamingRecognizeRequest {
	return &speechpb.StreamingRecognizeRequest{
		Recognizer: recognizerName(t.cfg.ProjectID, t.cfg.Location),
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Model:         t.cfg.Model,
					LanguageCodes: []string{language},
					DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
						ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
							Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
							SampleRateHertz:   audio.SampleRate,
							AudioChannelCount: audio.Channels,
						},
					},
					Features: &speechpb.RecognitionFeatures{
						EnableAutomaticPunctuation: true,
					},
				},
				StreamingFeatures: &speechpb.StreamingRecognitionFeatures{
					InterimResults: true,
				},
			},
		},
	}
}

func dialStream(ctx context.Context, client *speech.Client, cfg *speechpb.StreamingRecognizeRequest) (speechpb.Speech_StreamingRecognizeClient, error) {
	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		return nil, fmt.Errorf("open recognize stream: %w", err)
	}
	if err := stream.Send(cfg); err != nil {
		_ = stream.CloseSend()
		return nil, fmt.Errorf("send stream config: %w", err)
	}
	return stream, nil
}

type streamWriter struct {
	streamID string
	receiver transcriber.ResultReceiver
	client   *speech.Client
	dial     func() (speechpb.Speech_StreamingRecognizeClient, error)

	mu     sync.Mutex
	closed bool
	stream speechpb.Speech_StreamingRecognizeClient
}

func (w *streamWriter) Write(pcm []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return io.ErrClosedPipe
	}
	req := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{Audio: pcm},
	}
	err := w.stream.Send(req)
	if err == nil || !isReconnectableStreamError(err) {
		return err
	}
	slog.Warn("speech stream cut off; redialing", "error", err, "stream_id", w.streamID)
	_ = w.stream.CloseSend()
	next, err := w.dial()
	if err != nil {
		slog.Error("failed to redial speech stream", "error", err, "stream_id", w.streamID)
		return fmt.Errorf("redial stream: %w", err)
	}
	w.stream = next
	w.receive(next)
	return w.stream.Send(req)
}

func (w *streamWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	sendErr := w.stream.CloseSend()
	closeErr := w.client.Close()
	return errors.Join(sendErr, closeErr)
}

// receive forwards results of one stream until it ends. A stream that ends
// because it was cut off is replaced on the next Write, so only other
// failures reach the receiver.
func (w *streamWriter) receive(stream speechpb.Speech_StreamingRecognizeClient) {
	go func() {
		for {
			resp, err := stream.Recv()
			if err != nil {
				switch {
				case isCanceledStreamError(err):
					slog.Info("speech receive loop stopped", "reason", err.Error(), "stream_id", w.streamID)
				case isReconnectableStreamError(err):
					slog.Warn("speech receive loop cut off", "error", err, "stream_id", w.streamID)
				default:
					w.receiver.OnError(err)
				}
				return
			}
			for _, r := range toResults(resp) {
				w.receiver.OnResult(r)
			}
		}
	}()
}

func recognizerName(projectID, location string) string {
	return fmt.Sprintf("projects/%s/locations/%s/recognizers/_", projectID, location)
}

// toResults keeps the top alternative of each non-empty result.
func toResults(resp *speechpb.StreamingRecognizeResponse) []transcriber.Result {
	out := make([]transcriber.Result, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		text := strings.TrimSpace(alts[0].GetTranscript())
		if text == "" {
			continue
		}
		out = append(out, transcriber.Result{Text: text, IsFinal: result.GetIsFinal()})
	}
	return out
}

func isCanceledStreamError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return true
	}
	return status.Code(err) == codes.Canceled
}

// isReconnectableStreamError reports the limits Speech-to-Text enforces on a
// single stream: five minutes of audio, or a long pause with no requests.
func isReconnectableStreamError(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return false
	}
	msg := strings.ToLower(st.Message())
	return strings.Contains(msg, "max duration of 5 minutes") ||
		strings.Contains(msg, "stream timed out after receiving no more client requests")
}
