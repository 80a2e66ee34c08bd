// Command biomarkers runs a single Terra fetch with the service configuration
// and prints the JSON it returns.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"biotwin/config"
	"biotwin/services"

	"github.com/apex/log"
)

func main() {
	endpoint := flag.String("endpoint", "sleep", "data collection: sleep or daily")
	start := flag.String("start", "", "start date (YYYY-MM-DD), default from TERRA_DEFAULT_START")
	end := flag.String("end", "", "end date (YYYY-MM-DD), default from TERRA_DEFAULT_END")
	flag.Parse()

	cfg := config.Load()
	config.SetupLogging(cfg)

	if err := run(cfg, services.Endpoint(*endpoint), services.DateRange{StartDate: *start, EndDate: *end}); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config, endpoint services.Endpoint, r services.DateRange) error {
	if err := cfg.ValidateTerra(); err != nil {
		return err
	}
	if endpoint != services.EndpointSleep && endpoint != services.EndpointActivity {
		return fmt.Errorf("unknown endpoint %q, want sleep or daily", endpoint)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.TerraTimeout+5*time.Second)
	defer cancel()

	client := services.NewBiomarkerClient(cfg)
	data, err := client.Fetch(ctx, endpoint, r)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", endpoint, err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(os.Stdout)
	return err
}
