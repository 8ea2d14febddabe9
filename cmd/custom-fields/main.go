// Command custom-fields prints the contact custom field ids of a GHL location
// as a YAML field map for CONTACT_FIELDS_FILE.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	appconfig "github.com/wolfman30/ghl-booking-gateway/internal/config"
	"github.com/wolfman30/ghl-booking-gateway/internal/contacts"
	"github.com/wolfman30/ghl-booking-gateway/internal/ghl"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

type fieldLister interface {
	ListCustomFields(ctx context.Context, locationID string) ([]ghl.CustomField, error)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	if cfg.GHLAPIKey == "" || cfg.GHLLocationID == "" {
		log.Fatal("Set GHL_API_KEY and GHL_LOCATION_ID environment variables.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := ghl.NewClient(ghl.Config{
		BaseURL:         cfg.GHLBaseURL,
		APIKey:          cfg.GHLAPIKey,
		CalendarVersion: cfg.GHLCalendarAPIVersion,
		ContactsVersion: cfg.GHLContactsAPIVersion,
		Timeout:         cfg.GHLTimeout,
	}, logging.New("warn"))

	if err := run(ctx, client, cfg.GHLLocationID, os.Stdout, os.Stderr); err != nil {
		log.Fatalf("custom-fields: %v", err)
	}
}

// run writes the YAML field map to out and a listing of every contact field
// to diag. Target keys the location lacks are reported and left out of the
// map, so loading it keeps the default ids for them.
func run(ctx context.Context, lister fieldLister, locationID string, out, diag io.Writer) error {
	fields, err := lister.ListCustomFields(ctx, locationID)
	if err != nil {
		var remote *ghl.RemoteError
		if errors.As(err, &remote) {
			return fmt.Errorf("list custom fields: HTTP %d: %s", remote.Status, strings.TrimSpace(string(remote.Body)))
		}
		return fmt.Errorf("list custom fields: %w", err)
	}

	fmt.Fprintf(diag, "Found %d custom fields:\n", len(fields))
	for _, f := range fields {
		fmt.Fprintf(diag, "  %-50s %s (%s)\n", f.FieldKey, f.ID, f.Name)
	}

	var m contacts.FieldMap
	for _, f := range fields {
		m.Assign(f.FieldKey, f.ID)
	}
	if missing := m.Missing(); len(missing) > 0 {
		fmt.Fprintf(diag, "Missing target fields: %s\n", strings.Join(missing, ", "))
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode field map: %w", err)
	}
	return enc.Close()
}
