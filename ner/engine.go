package ner

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/daulet/tokenizers"
	onnxruntime "github.com/yalue/onnxruntime_go"
)

// maxSeqLen is the model's maximum input length. Tokens past this point
// are silently dropped; truncation is documented behavior, not an error.
const maxSeqLen = 512

// Device preferences accepted by the engine.
const (
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// Artifact file names expected inside a model directory.
const (
	modelFile     = "model.onnx"
	tokenizerFile = "tokenizer.json"
	labelsFile    = "label_mappings.json"
)

// Engine runs token classification over single lines of text using a
// pretrained ONNX model. It is not safe for concurrent use; the tool runs
// one line at a time.
type Engine struct {
	tokenizer    *tokenizers.Tokenizer
	session      *onnxruntime.AdvancedSession
	inputTensor  *onnxruntime.Tensor[int64]
	maskTensor   *onnxruntime.Tensor[int64]
	outputTensor *onnxruntime.Tensor[float32]
	labels       LabelSet
	modelPath    string
	device       string
}

// ValidateModelDir checks that dir exists and contains the artifacts the
// engine needs. The label mappings file is optional; the compiled-in
// default mapping covers models exported without one.
func ValidateModelDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("model directory does not exist: %s", dir)
		}
		return fmt.Errorf("failed to access model directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("model path is not a directory: %s", dir)
	}

	var missing []string
	for _, name := range []string{modelFile, tokenizerFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required files in model directory: %v", missing)
	}
	return nil
}

// LabelsPath returns the location of the label mappings side file inside a
// model directory.
func LabelsPath(dir string) string {
	return filepath.Join(dir, labelsFile)
}

// NewEngine loads the tokenizer from the model directory and prepares an
// engine bound to the given label set and device preference. The ONNX
// session itself is created lazily on first Classify call.
func NewEngine(modelDir string, labels LabelSet, device string) (*Engine, error) {
	if err := ValidateModelDir(modelDir); err != nil {
		return nil, err
	}
	if device != DeviceCPU && device != DeviceCUDA {
		return nil, fmt.Errorf("unsupported device %q (expected %q or %q)", device, DeviceCPU, DeviceCUDA)
	}

	configureSharedLibrary()

	if !onnxruntime.IsInitialized() {
		if err := onnxruntime.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX Runtime environment: %w", err)
		}
	}

	tk, err := tokenizers.FromFile(filepath.Join(modelDir, tokenizerFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	absDir, err := filepath.Abs(modelDir)
	if err != nil {
		absDir = modelDir
	}

	return &Engine{
		tokenizer: tk,
		labels:    labels,
		modelPath: filepath.Join(absDir, modelFile),
		device:    device,
	}, nil
}

// configureSharedLibrary points the ONNX Runtime bindings at the shared
// library. The environment variable wins; otherwise a handful of known
// install locations are probed.
func configureSharedLibrary() {
	libPath := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")
	if libPath == "" {
		candidates := []string{
			"./libonnxruntime.so",
			"/usr/lib/libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.so",
			"./libonnxruntime.dylib",
			"/usr/local/lib/libonnxruntime.dylib",
		}
		for _, path := range candidates {
			if _, err := os.Stat(path); err == nil {
				libPath = path
				break
			}
		}
	}
	if libPath != "" {
		onnxruntime.SetSharedLibraryPath(libPath)
	}
}

// Classify tokenizes text, runs the model, and aggregates token verdicts
// into a LineResult. Any failure is returned as a *ClassifyError; the
// result in that case is the neutral verdict so callers can use it
// directly.
func (e *Engine) Classify(ctx context.Context, text string) (res LineResult, err error) {
	// The runtime bindings cross into C; a crash there must not take the
	// whole batch down.
	defer func() {
		if r := recover(); r != nil {
			res = NeutralResult(text)
			err = &ClassifyError{Kind: FailureInference, Err: fmt.Errorf("panic during inference: %v", r)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return NeutralResult(text), &ClassifyError{Kind: FailureInference, Err: err}
	}

	if e.session == nil {
		if err := e.initializeSession(); err != nil {
			return NeutralResult(text), &ClassifyError{Kind: FailureSession, Err: err}
		}
	}

	encoding := e.tokenizer.EncodeWithOptions(text, true)
	tokenIDs := encoding.IDs
	if len(tokenIDs) == 0 {
		return NeutralResult(text), &ClassifyError{Kind: FailureTokenize, Err: fmt.Errorf("tokenizer produced no tokens")}
	}
	if len(tokenIDs) > maxSeqLen {
		tokenIDs = tokenIDs[:maxSeqLen]
	}

	inputIDs := make([]int64, len(tokenIDs))
	attentionMask := make([]int64, len(tokenIDs))
	for i := range tokenIDs {
		inputIDs[i] = int64(tokenIDs[i])
		attentionMask[i] = 1
	}
	e.updateInputTensors(inputIDs, attentionMask)

	if err := e.session.Run(); err != nil {
		return NeutralResult(text), &ClassifyError{Kind: FailureInference, Err: fmt.Errorf("failed to run inference: %w", err)}
	}

	preds := e.tokenPredictions(len(tokenIDs))
	return Aggregate(text, preds), nil
}

// tokenPredictions reads the logits tensor and produces one prediction per
// token: the argmax label and its softmax probability.
func (e *Engine) tokenPredictions(numTokens int) []TokenPrediction {
	outputData := e.outputTensor.GetData()
	numClasses := e.labels.NumClasses()

	preds := make([]TokenPrediction, 0, numTokens)
	for i := 0; i < numTokens; i++ {
		start := i * numClasses
		end := start + numClasses
		if end > len(outputData) {
			break
		}
		probs := softmax(outputData[start:end])
		class, prob := argmax(probs)
		preds = append(preds, TokenPrediction{
			Index:      i,
			Label:      e.labels.Label(class),
			Confidence: prob,
		})
	}
	return preds
}

// initializeSession creates the ONNX session and its tensors. Input
// tensors are sized to the maximum sequence length and reused across
// Classify calls.
func (e *Engine) initializeSession() error {
	batchSize := int64(1)
	inputShape := onnxruntime.NewShape(batchSize, maxSeqLen)

	inputTensor, err := onnxruntime.NewTensor(inputShape, make([]int64, maxSeqLen))
	if err != nil {
		return fmt.Errorf("failed to create input tensor: %w", err)
	}

	maskTensor, err := onnxruntime.NewTensor(inputShape, make([]int64, maxSeqLen))
	if err != nil {
		destroyQuietly(inputTensor)
		return fmt.Errorf("failed to create mask tensor: %w", err)
	}

	outputShape := onnxruntime.NewShape(batchSize, maxSeqLen, int64(e.labels.NumClasses()))
	outputTensor, err := onnxruntime.NewEmptyTensor[float32](outputShape)
	if err != nil {
		destroyQuietly(inputTensor)
		destroyQuietly(maskTensor)
		return fmt.Errorf("failed to create output tensor: %w", err)
	}

	options, err := e.sessionOptions()
	if err != nil {
		destroyQuietly(inputTensor)
		destroyQuietly(maskTensor)
		destroyQuietly(outputTensor)
		return err
	}
	if options != nil {
		defer func() {
			if err := options.Destroy(); err != nil {
				log.Printf("[Engine] Warning: failed to destroy session options: %v", err)
			}
		}()
	}

	session, err := onnxruntime.NewAdvancedSession(e.modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]onnxruntime.Value{inputTensor, maskTensor},
		[]onnxruntime.Value{outputTensor},
		options)
	if err != nil {
		destroyQuietly(inputTensor)
		destroyQuietly(maskTensor)
		destroyQuietly(outputTensor)
		return fmt.Errorf("failed to create session: %w", err)
	}

	e.session = session
	e.inputTensor = inputTensor
	e.maskTensor = maskTensor
	e.outputTensor = outputTensor
	return nil
}

// sessionOptions builds session options for the device preference. A CUDA
// setup failure falls back to CPU instead of failing the run.
func (e *Engine) sessionOptions() (*onnxruntime.SessionOptions, error) {
	if e.device != DeviceCUDA {
		return nil, nil
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}

	cudaOptions, err := onnxruntime.NewCUDAProviderOptions()
	if err != nil {
		log.Printf("[Engine] CUDA unavailable, falling back to CPU: %v", err)
		return options, nil
	}
	defer func() {
		if err := cudaOptions.Destroy(); err != nil {
			log.Printf("[Engine] Warning: failed to destroy CUDA provider options: %v", err)
		}
	}()

	if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
		log.Printf("[Engine] Failed to enable CUDA execution provider, falling back to CPU: %v", err)
	}
	return options, nil
}

// updateInputTensors clears the reusable input tensors and copies in the
// new token ids and attention mask.
func (e *Engine) updateInputTensors(inputIDs, attentionMask []int64) {
	inputData := e.inputTensor.GetData()
	maskData := e.maskTensor.GetData()

	for i := range inputData {
		inputData[i] = 0
		maskData[i] = 0
	}
	copy(inputData, inputIDs)
	copy(maskData, attentionMask)
}

func destroyQuietly(t interface{ Destroy() error }) {
	if err := t.Destroy(); err != nil {
		log.Printf("[Engine] Warning: failed to destroy tensor during cleanup: %v", err)
	}
}

// Close releases the session, tensors, tokenizer, and the runtime
// environment.
func (e *Engine) Close() error {
	var errs []error

	if e.session != nil {
		if err := e.session.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy session: %w", err))
		}
	}
	if e.inputTensor != nil {
		if err := e.inputTensor.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy input tensor: %w", err))
		}
	}
	if e.maskTensor != nil {
		if err := e.maskTensor.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy mask tensor: %w", err))
		}
	}
	if e.outputTensor != nil {
		if err := e.outputTensor.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy output tensor: %w", err))
		}
	}
	if e.tokenizer != nil {
		if err := e.tokenizer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close tokenizer: %w", err))
		}
	}
	if err := onnxruntime.DestroyEnvironment(); err != nil {
		errs = append(errs, fmt.Errorf("failed to destroy environment: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
