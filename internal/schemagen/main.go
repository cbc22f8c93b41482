package main

import (
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/stefanprodan/kswitch-sub001/api/v1beta1/configs"
	"github.com/stefanprodan/kswitch-sub001/pkg/yaml"
)

var outFile = pflag.StringP("output", "o", "schema.json", "Output file for the generated schema")

func main() {
	pflag.Parse()

	gen := yaml.NewSchemaGenerator(configs.New(),
		"github.com/stefanprodan/kswitch-sub001/api/v1beta1",
		"github.com/stefanprodan/kswitch-sub001/api/v1beta1/configs",
		"github.com/stefanprodan/kswitch-sub001/pkg/execs",
		"github.com/stefanprodan/kswitch-sub001/pkg/fleet",
		"github.com/stefanprodan/kswitch-sub001/pkg/kube",
		"github.com/stefanprodan/kswitch-sub001/pkg/task",
	)
	jsData, err := gen.Generate()
	if err != nil {
		log.Fatalf("generate JSON schema: %v", err)
	}

	// Write schema.json file.
	err = os.WriteFile(*outFile, jsData, 0o600)
	if err != nil {
		log.Fatalf("write schema file: %v", err)
	}
}
