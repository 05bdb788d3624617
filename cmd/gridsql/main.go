// Command gridsql prints the SQL Server statements the grid generates for
// tables described in a YAML schema file, without a database connection.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
)

// Version is set at build time via ldflags
var Version = "dev"

// Context is passed to every command's Run method.
type Context struct {
	Schema string
	Out    io.Writer
}

// CLI is the gridsql command line.
type CLI struct {
	Schema  string     `help:"YAML file describing the tables" short:"s" default:"tables.yaml" type:"path"`
	Build   BuildCmd   `cmd:"" help:"Print the statement generated for a table"`
	Tables  TablesCmd  `cmd:"" help:"List the tables in the schema file"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// VersionCmd represents the version command
type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *Context) error {
	_, err := fmt.Fprintf(ctx.Out, "gridsql %s\n", Version)
	return err
}

// run parses args and executes the selected command, writing to out.
func run(args []string, out io.Writer, options ...kong.Option) error {
	var cli CLI
	options = append([]kong.Option{
		kong.Name("gridsql"),
		kong.Description("Generate row-editing statements for SQL Server tables."),
		kong.UsageOnError(),
	}, options...)

	parser, err := kong.New(&cli, options...)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run(&Context{Schema: cli.Schema, Out: out})
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
