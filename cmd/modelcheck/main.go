// Command modelcheck reports whether a model can be served by onnxruntime
// and imported by go-metal, and lists its inputs and outputs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/tsawler/go-metal/checkpoints"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/dudu/gazecursor/internal/inference"
)

func main() {
	runtimeLib := pflag.String("runtime", "", "onnxruntime shared library (default: platform default)")
	skipMetal := pflag.Bool("skip-metal", false, "skip the go-metal import check")
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: modelcheck [options] <model.onnx>")
		fmt.Fprintln(os.Stderr, "\nChecks a landmark, face or emotion model before gazecursor loads it.")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	modelPath := pflag.Arg(0)

	if _, err := os.Stat(modelPath); errors.Is(err, os.ErrNotExist) {
		fmt.Printf("Error: File not found: %s\n", modelPath)
		os.Exit(1)
	}

	failed := false
	if err := checkRuntime(modelPath, *runtimeLib); err != nil {
		fmt.Printf("onnxruntime: FAILED: %v\n", err)
		failed = true
	}
	if !*skipMetal {
		if err := checkMetal(modelPath); err != nil {
			fmt.Printf("go-metal: FAILED: %v\n", err)
			fmt.Println("go-metal only supports: Conv, MatMul, Add, Relu, LeakyRelu,")
			fmt.Println("Sigmoid, Tanh, BatchNorm, Dropout, Softmax, Flatten")
		}
	}
	if failed {
		os.Exit(1)
	}
}

func checkRuntime(modelPath, libraryPath string) error {
	if err := inference.Initialize(inference.Options{LibraryPath: libraryPath}, nil); err != nil {
		return err
	}
	defer inference.Shutdown()

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return fmt.Errorf("failed to get model info: %w", err)
	}

	fmt.Println("onnxruntime: OK")
	fmt.Printf("\nInputs (%d):\n", len(inputs))
	for _, info := range inputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", info.Name, info.Dimensions, info.DataType)
	}
	fmt.Printf("\nOutputs (%d):\n", len(outputs))
	for _, info := range outputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", info.Name, info.Dimensions, info.DataType)
	}

	metadata, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		fmt.Printf("\n(Could not read metadata: %v)\n", err)
		return nil
	}
	defer metadata.Destroy()
	fmt.Println("\nMetadata:")
	if producer, err := metadata.GetProducerName(); err == nil {
		fmt.Printf("  Producer: %s\n", producer)
	}
	if version, err := metadata.GetVersion(); err == nil {
		fmt.Printf("  Version: %d\n", version)
	}
	if desc, err := metadata.GetDescription(); err == nil && desc != "" {
		fmt.Printf("  Description: %s\n", desc)
	}
	return nil
}

func checkMetal(modelPath string) error {
	importer := checkpoints.NewONNXImporter()
	checkpoint, err := importer.ImportFromONNX(modelPath)
	if err != nil {
		return err
	}

	fmt.Printf("\ngo-metal: OK (%d layers, %d weight tensors)\n",
		len(checkpoint.ModelSpec.Layers), len(checkpoint.Weights))
	for i, layer := range checkpoint.ModelSpec.Layers {
		fmt.Printf("  %d: %s (%s)\n", i+1, layer.Name, layer.Type)
	}
	return nil
}
