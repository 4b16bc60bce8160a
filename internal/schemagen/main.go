// Command schemagen writes the JSON schema for rule set files.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/macropower/presubmit/api/v1beta1/rulesets"
)

var (
	outFile = flag.String("o", "rulesets.v1beta1.json", "Output file for the generated schema")
	rootDir = flag.String("root", ".", "Module root, used to read doc comments")
)

func main() {
	flag.Parse()

	r := &jsonschema.Reflector{}

	err := r.AddGoComments("github.com/macropower/presubmit", *rootDir)
	if err != nil {
		log.Fatalf("read go comments: %v", err)
	}

	jss := r.Reflect(rulesets.New())
	jss.ID = ""

	jsData, err := json.MarshalIndent(jss, "", "  ")
	if err != nil {
		log.Fatalf("generate JSON schema: %v", err)
	}

	// Write schema file.
	err = os.WriteFile(*outFile, append(jsData, '\n'), 0o600)
	if err != nil {
		log.Fatalf("write schema file: %v", err)
	}
}
