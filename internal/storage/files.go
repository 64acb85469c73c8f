package storage

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	ffmpegBinary       = "ffmpeg"
	maxTranscribeBytes = 25 * 1024 * 1024
	transcodedSuffix   = "_transcoded"
	transcodedExt      = ".mp3"
)

// Bitrates tried in order until the transcoded file fits the provider's
// upload limit.
var transcodeBitrates = []string{"96k", "64k", "48k", "32k"}

var mimeExtensionFallback = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/mp4":   ".m4a",
	"audio/x-m4a": ".m4a",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/webm":  ".webm",
	"audio/ogg":   ".webm",
}

// FileManager owns the on-disk layout for uploaded audio and exported
// study sheets.
type FileManager struct {
	baseDir        string
	audioDir       string
	sheetDir       string
	maxUploadBytes int64
}

func NewFileManager(baseDir string, maxUploadBytes int64) (*FileManager, error) {
	fm := &FileManager{
		baseDir:        baseDir,
		audioDir:       filepath.Join(baseDir, "audio"),
		sheetDir:       filepath.Join(baseDir, "sheets"),
		maxUploadBytes: maxUploadBytes,
	}

	for _, dir := range []string{fm.baseDir, fm.audioDir, fm.sheetDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	return fm, nil
}

// SaveUploadedAudio spools an uploaded audio stream to disk under a fresh
// id, enforcing the configured size limit.
func (fm *FileManager) SaveUploadedAudio(file multipart.File, filename, contentType string) (string, error) {
	ext := audioExtension(filename, contentType)
	path := filepath.Join(fm.audioDir, uuid.NewString()+ext)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}

	reader := io.Reader(file)
	if fm.maxUploadBytes > 0 {
		reader = io.LimitReader(file, fm.maxUploadBytes+1)
	}

	written, err := io.Copy(out, reader)
	if err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("write audio file: %w", err)
	}
	if fm.maxUploadBytes > 0 && written > fm.maxUploadBytes {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("audio file exceeds maximum size")
	}

	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close audio file: %w", err)
	}

	return path, nil
}

// PrepareForTranscription returns a path whose file fits the transcription
// provider's upload limit, transcoding down with ffmpeg when the original
// is too large.
func (fm *FileManager) PrepareForTranscription(inputPath string) (string, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return "", fmt.Errorf("stat audio file: %w", err)
	}
	if info.Size() <= maxTranscribeBytes {
		return inputPath, nil
	}

	if _, err := exec.LookPath(ffmpegBinary); err != nil {
		return "", fmt.Errorf("audio exceeds %d MB and ffmpeg is not available: %w", maxTranscribeBytes/1024/1024, err)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	output := filepath.Join(fm.audioDir, base+transcodedSuffix+transcodedExt)

	var lastErr error
	for _, bitrate := range transcodeBitrates {
		_ = os.Remove(output)

		args := []string{
			"-y",
			"-i", inputPath,
			"-vn",
			"-ac", "1",
			"-acodec", "libmp3lame",
			"-b:a", bitrate,
			output,
		}

		cmd := exec.Command(ffmpegBinary, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			lastErr = fmt.Errorf("transcode audio: %w: %s", err, strings.TrimSpace(stderr.String()))
			continue
		}

		transcoded, err := os.Stat(output)
		if err != nil {
			lastErr = fmt.Errorf("stat transcoded audio: %w", err)
			continue
		}
		if transcoded.Size() > maxTranscribeBytes {
			lastErr = fmt.Errorf("transcoded audio still exceeds %d MB at %s", maxTranscribeBytes/1024/1024, bitrate)
			continue
		}

		return output, nil
	}

	return "", lastErr
}

func (fm *FileManager) SheetPath(id string) string {
	return filepath.Join(fm.sheetDir, fmt.Sprintf("%s.pdf", id))
}

func audioExtension(filename, contentType string) string {
	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(filename)))
	if ext != "" {
		return ext
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if ext, ok := mimeExtensionFallback[contentType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
