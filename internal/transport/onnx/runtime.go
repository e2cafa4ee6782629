// Package onnx embeds queries locally with an exported sentence-transformer running on ONNX Runtime.
package onnx

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

// InitRuntime loads the ONNX Runtime shared library and creates the global environment.
// Safe to call from every encoder; only the first call has effect.
func InitRuntime(libraryPath string) error {
	envOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("initialize onnxruntime: %w", err)
		}
	})
	return envErr
}

// ShutdownRuntime releases the global environment. Call once at process exit.
func ShutdownRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("destroy onnxruntime: %w", err)
	}
	return nil
}
