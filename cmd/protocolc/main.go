// protocolc is the command-line front end for packages idl and codegen:
// it parses a protocol description document and either validates it,
// renders it to a Go binding, or prints the stable hash a declared name
// maps to, the same value the runtime itself uses as an aspect id or
// opcode (I6).
package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/stardustxr/client-go/codegen"
	"github.com/stardustxr/client-go/hash"
	"github.com/stardustxr/client-go/idl"
)

var (
	okPrefix   = color.New(color.FgGreen, color.Bold).SprintFunc()("✓") // check mark
	failPrefix = color.New(color.FgRed, color.Bold).SprintFunc()("×")   // times
)

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", failPrefix, fmt.Sprintf(format, args...))
	os.Exit(1)
}

func readSource(c *cli.Context) (string, error) {
	path := c.Args().First()
	if path == "" || path == "-" {
		b, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("protocolc: reading stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("protocolc: reading %s: %w", path, err)
	}
	return string(b), nil
}

func checkCommand(c *cli.Context) error {
	src, err := readSource(c)
	if err != nil {
		fatalf("%v", err)
	}
	proto, err := idl.Parse(src)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("%s %d enum(s), %d union(s), %d struct(s), %d aspect(s)\n",
		okPrefix, len(proto.CustomEnums), len(proto.CustomUnions), len(proto.CustomStructs), len(proto.Aspects))
	return nil
}

func generateCommand(c *cli.Context) error {
	src, err := readSource(c)
	if err != nil {
		fatalf("%v", err)
	}
	proto, err := idl.Parse(src)
	if err != nil {
		fatalf("%v", err)
	}
	out, err := codegen.Generate(proto, codegen.Options{PackageName: c.String("package")})
	if err != nil {
		fatalf("generating binding: %v", err)
	}

	dest := c.String("output")
	if dest == "" || dest == "-" {
		os.Stdout.Write(out)
		return nil
	}
	if err := ioutil.WriteFile(dest, out, 0644); err != nil {
		fatalf("writing %s: %v", dest, err)
	}
	fmt.Fprintf(os.Stderr, "%s wrote %s\n", okPrefix, dest)
	return nil
}

func hashCommand(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		fatalf("usage: protocolc hash <name>")
	}
	fmt.Printf("%d\n", hash.Name(name))
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "protocolc"
	app.Usage = "parse and render Stardust XR protocol description documents"
	app.Commands = []cli.Command{
		{
			Name:      "check",
			Usage:     "parse a protocol document and report its declaration counts",
			ArgsUsage: "<file.kdl>",
			Action:    checkCommand,
		},
		{
			Name:      "generate",
			Usage:     "render a protocol document into a Go binding",
			ArgsUsage: "<file.kdl>",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "package, p",
					Usage: "emitted package name",
					Value: "protocol",
				},
				cli.StringFlag{
					Name:  "output, o",
					Usage: "output file path (default: stdout)",
				},
			},
			Action: generateCommand,
		},
		{
			Name:      "hash",
			Usage:     "print the stable 64-bit id a declared name hashes to",
			ArgsUsage: "<name>",
			Action:    hashCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fatalf("%v", err)
	}
}
