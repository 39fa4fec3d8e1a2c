package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tomars/doppel/pkg/analyzer/neardup"
	"github.com/tomars/doppel/pkg/source"
)

func fingerprintCmd() *cli.Command {
	return &cli.Command{
		Name:      "fingerprint",
		Aliases:   []string{"fp"},
		Usage:     "Print the Winnowing fingerprints of a single file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "values",
				Usage: "Print the individual fingerprint hashes",
			},
		},
		Action: runFingerprint,
	}
}

func runFingerprint(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("fingerprint requires a file argument")
	}
	path := c.Args().First()

	src := source.NewFilesystem("", neardup.DefaultMaxFileBytes)
	content, err := src.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	fps := neardup.Fingerprint(content)
	fmt.Printf("%s: %d fingerprints (%d bytes)\n", path, len(fps), len(content))
	if c.Bool("values") {
		for _, fp := range fps {
			fmt.Printf("%016x\n", fp)
		}
	}
	return nil
}
