package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"sigs.k8s.io/release-utils/version"
)

func printVersion(c *cli.Context) error {
	versionInfo := version.GetVersionInfo()
	_, err := fmt.Fprintf(c.App.Writer, "%s %s\n\n%s\n", c.App.Name, versionInfo.GitVersion, versionInfo.String())
	return err
}

func licenseCommand() *cli.Command {
	return &cli.Command{
		Name:  "license",
		Usage: "print version and license information and exit",
		Action: func(c *cli.Context) error {
			if err := printVersion(c); err != nil {
				return err
			}
			_, err := fmt.Fprintln(c.App.Writer, "See the LICENSE file distributed with this source tree.")
			return err
		},
	}
}
