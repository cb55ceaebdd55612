package elastic

import (
	"context"
	"fmt"

	"github.com/olivere/elastic/v7"

	"placematch/internal/place"
	"placematch/internal/textutil"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":       {"type": "keyword"},
      "name":     {"type": "text"},
      "address":  {"type": "text"},
      "phone":    {"type": "keyword"},
      "location": {"type": "geo_point"}
    }
  }
}`

// EnsureIndex creates the places index with its mapping when missing.
func (c *Client) EnsureIndex(ctx context.Context) (bool, error) {
	exists, err := c.es.IndexExists(c.index).Do(ctx)
	if err != nil {
		return false, fmt.Errorf("elastic: check index %s: %w", c.index, err)
	}
	if exists {
		return false, nil
	}
	resp, err := c.es.CreateIndex(c.index).BodyString(indexMapping).Do(ctx)
	if err != nil {
		return false, fmt.Errorf("elastic: create index %s: %w", c.index, err)
	}
	if !resp.Acknowledged {
		return true, fmt.Errorf("elastic: create index %s not acknowledged", c.index)
	}
	return true, nil
}

// DocumentFor converts a record into its indexed form. Records without a
// usable coordinate are skipped by IndexRecords.
func DocumentFor(r place.Record) Document {
	phone, _ := textutil.NormalizePhone(r.Phone)
	id := r.ExternalID
	if id == "" {
		id = r.ID
	}
	return Document{
		ID:       id,
		Name:     r.Name,
		Address:  r.Address,
		Phone:    phone,
		Location: elastic.GeoPoint{Lat: r.Coordinate.Lat, Lon: r.Coordinate.Lon},
	}
}

// IndexRecords bulk-indexes records and returns how many were accepted.
func (c *Client) IndexRecords(ctx context.Context, records []place.Record) (int, error) {
	bulk := c.es.Bulk().Index(c.index)
	for _, r := range records {
		if !r.HasCoordinate() {
			continue
		}
		doc := DocumentFor(r)
		bulk.Add(elastic.NewBulkIndexRequest().Id(doc.ID).Doc(doc))
	}
	if bulk.NumberOfActions() == 0 {
		return 0, nil
	}
	resp, err := bulk.Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("elastic: bulk index: %w", err)
	}
	failed := resp.Failed()
	if len(failed) > 0 {
		first := failed[0]
		reason := ""
		if first.Error != nil {
			reason = first.Error.Reason
		}
		return len(resp.Succeeded()), fmt.Errorf("elastic: %d documents rejected, first %s: %s", len(failed), first.Id, reason)
	}
	return len(resp.Succeeded()), nil
}
