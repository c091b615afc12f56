// Command gcp-metadata queries the GCE metadata service from the
// command line. It is a thin shell over the gcpmetadata package.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	gcpmetadata "github.com/stephenplusplus/gcp-metadata"
)

var (
	app     = kingpin.New("gcp-metadata", "Query the GCE metadata service.")
	verbose = app.Flag("verbose", "Enable verbose log output.").Short('v').Bool()

	getCmd      = app.Command("get", "Fetch a metadata resource.")
	getResource = getCmd.Arg("resource", "Resource to fetch (instance, project, universe).").Required().String()
	getProperty = getCmd.Arg("property", "Property of the resource to fetch.").String()

	detectCmd = app.Command("detect", "Tell whether the metadata service is available.")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	log.SetHandler(cli.Default)
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	client := gcpmetadata.New()
	client.Logger = log.Log
	ctx := context.Background()

	switch command {
	case getCmd.FullCommand():
		value, err := client.Get(ctx, *getResource, *getProperty)
		if err != nil {
			log.WithError(err).Fatal("cannot fetch the requested resource")
		}
		fmt.Println(renderValue(value))

	case detectCmd.FullCommand():
		available, err := client.IsAvailable(ctx)
		if err != nil {
			log.WithError(err).Fatal("cannot detect the metadata service")
		}
		fmt.Println(available)
		if !available {
			os.Exit(1)
		}
	}
}

// renderValue renders a decoded metadata value for printing.
func renderValue(value any) string {
	if s, good := value.(string); good {
		return s
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}
