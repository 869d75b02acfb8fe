package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/ai-check/internal/fusion"
	"github.com/example/ai-check/internal/logging"
)

// ErrUnsupportedFileType reports an upload whose extension is not accepted.
var ErrUnsupportedFileType = errors.New("unsupported file type")

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// Detector is the image classification pipeline used by the use case.
type Detector interface {
	EvaluateFile(ctx context.Context, path string) (fusion.Decision, error)
}

// DetectionUseCase stages uploads on disk and runs them through the detector.
type DetectionUseCase struct {
	detector  Detector
	uploadDir string
	logger    *zap.Logger
	stats     *detectionStats
	now       func() time.Time
}

// NewDetectionUseCase constructs a new use case instance.
func NewDetectionUseCase(detector Detector, uploadDir string, logger *zap.Logger) *DetectionUseCase {
	return &DetectionUseCase{
		detector:  detector,
		uploadDir: uploadDir,
		logger:    logger.Named("detection_usecase"),
		stats:     &detectionStats{},
		now:       time.Now,
	}
}

// AllowedFile reports whether filename carries an accepted image extension.
func AllowedFile(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Detect classifies the uploaded image. The upload is written to a scratch
// file named after the request ID, which is removed before returning.
func (uc *DetectionUseCase) Detect(ctx context.Context, userID, filename string, body io.Reader) (string, fusion.Verdict, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.detect", requestID).With(zap.String("user_id", userID))

	if !AllowedFile(filename) {
		return requestID, "", ErrUnsupportedFileType
	}

	started := uc.now()
	path, err := uc.stage(requestID, filepath.Ext(filename), body)
	if err != nil {
		uc.stats.recordFailure()
		wrapped := logging.NewOperationError("usecase.stage_upload", requestID, err)
		opLogger.Error("failed to stage upload", zap.Error(wrapped))
		return requestID, "", wrapped
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			opLogger.Warn("failed to remove scratch file", zap.String("path", path), zap.Error(err))
		}
	}()

	decision, err := uc.detector.EvaluateFile(ctx, path)
	if err != nil {
		uc.stats.recordFailure()
		wrapped := logging.NewOperationError("usecase.detect", requestID, err)
		opLogger.Error("detection failed", zap.Error(wrapped))
		return requestID, "", wrapped
	}

	latency := uc.now().Sub(started)
	uc.stats.record(decision, latency)
	opLogger.Info("detection completed",
		zap.String("verdict", string(decision.Verdict)),
		zap.Float64("score", decision.ClassifierScore),
		zap.Bool("heuristic_invoked", decision.HeuristicInvoked),
		zap.Duration("latency", latency),
	)
	return requestID, decision.Verdict, nil
}

func (uc *DetectionUseCase) stage(requestID, ext string, body io.Reader) (string, error) {
	if err := os.MkdirAll(uc.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(uc.uploadDir, requestID+strings.ToLower(ext))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
