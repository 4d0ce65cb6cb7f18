// Package main provides the mlp command line tool.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"

	"github.com/born-ml/mlp/nn"
)

const version = "v0.1.0-dev"

func main() {
	log.SetFlags(0)
	log.SetPrefix("mlp: ")

	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "mlp %s\n", version)
		return nil
	case "xor":
		return runXOR(args[1:], stdout)
	case "inspect":
		return runInspect(args[1:], stdout)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(stdout)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "mlp - multi-layer perceptron trained with online SGD")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version                                   Show version")
	fmt.Fprintln(w, "  xor [-epochs N] [-lr R] [-seed S] [-out F] Train a 2-2-1 network on XOR")
	fmt.Fprintln(w, "  inspect FILE                              Print the parameters of a saved network")
}

var (
	xorInputs  = [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	xorTargets = [][]float64{{0}, {1}, {1}, {0}}
)

func runXOR(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("xor", flag.ContinueOnError)
	epochs := fs.Int("epochs", 5000, "number of passes over the dataset")
	lr := fs.Float64("lr", 0.5, "learning rate")
	seed := fs.Uint64("seed", 1, "seed for parameter initialization")
	out := fs.String("out", "", "save the trained network to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	net, err := nn.NewNetwork(nn.Config{
		Topology:     []int{2, 2, 1},
		LearningRate: *lr,
		Activations:  []nn.Activation{nn.Tanh, nn.Sigmoid},
		Rand:         rand.New(rand.NewPCG(*seed, *seed)), //nolint:gosec // G404: reproducible initialization, not security sensitive
	})
	if err != nil {
		return err
	}

	before, err := net.Loss(xorInputs, xorTargets)
	if err != nil {
		return err
	}
	log.Printf("training %v for %d epochs (lr=%v, seed=%d)", net.Topology(), *epochs, *lr, *seed)

	if err := net.Train(xorInputs, xorTargets, *epochs); err != nil {
		return err
	}

	after, err := net.Loss(xorInputs, xorTargets)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "loss: %.6f -> %.6f\n", before, after)
	for i, x := range xorInputs {
		y, err := net.Infer(x)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%v -> %.4f (target %v)\n", x, y[0], xorTargets[i][0])
	}

	if *out != "" {
		if err := net.Save(*out); err != nil {
			return err
		}
		log.Printf("saved network to %s", *out)
	}
	return nil
}

func runInspect(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("inspect: expected exactly one file")
	}

	net, err := nn.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "topology: %v\n", net.Topology())
	fmt.Fprintf(stdout, "activations: %v\n", net.Activations())
	fmt.Fprintf(stdout, "learning rate: %v\n", net.LearningRate())
	fmt.Fprint(stdout, net.Describe())
	return nil
}
