package validation

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// FileConstraints maps each accepted declared MIME type to the types
// http.DetectContentType may report for it. Office formats sniff as
// containers, so the declared type decides and sniffing only rules out
// obvious mismatches.
type FileConstraints struct {
	AllowedMimeTypes  map[string][]string
	AllowedExtensions map[string]bool
	MaxSize           int64
}

var DocumentConstraints = FileConstraints{
	AllowedMimeTypes: map[string][]string{
		"application/pdf":    {"application/pdf"},
		"application/msword": {"application/octet-stream"},
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {"application/zip"},
		"image/jpeg": {"image/jpeg"},
		"image/png":  {"image/png"},
		"image/gif":  {"image/gif"},
	},
	AllowedExtensions: map[string]bool{
		".pdf":  true,
		".doc":  true,
		".docx": true,
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
	},
	MaxSize: 10 << 20, // 10MB
}

var (
	ErrFileTooLarge    = errors.New("file too large: maximum size is 10 MB")
	ErrInvalidFileType = errors.New("invalid file type. allowed: PDF, DOC, DOCX, JPEG, PNG, GIF")
)

// ValidateFile checks size, declared type, extension and content of an
// upload, returning the accepted MIME type.
func ValidateFile(header *multipart.FileHeader, constraints FileConstraints) (string, error) {
	if header.Size > constraints.MaxSize {
		return "", ErrFileTooLarge
	}

	declared := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	sniffable, ok := constraints.AllowedMimeTypes[declared]
	if !ok {
		return "", ErrInvalidFileType
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !constraints.AllowedExtensions[ext] {
		return "", ErrInvalidFileType
	}

	detected, err := sniff(header)
	if err != nil {
		return "", err
	}
	for _, t := range sniffable {
		if t == detected {
			return declared, nil
		}
	}

	return "", fmt.Errorf("%w (detected: %s)", ErrInvalidFileType, detected)
}

func sniff(header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// DetectContentType looks at no more than 512 bytes
	buffer := make([]byte, 512)
	n, err := io.ReadFull(file, buffer)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	detected := http.DetectContentType(buffer[:n])
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = detected[:i]
	}
	return detected, nil
}
