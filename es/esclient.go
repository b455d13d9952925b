package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/fundwit/go-commons/types"
)

// ELASTICSEARCH_URL
var (
	activeESClient *elasticsearch.Client
	clientOnce     sync.Once

	IndexFunc              = Index
	DeleteDocumentByIdFunc = DeleteDocumentById
)

func client() (*elasticsearch.Client, error) {
	var err error
	clientOnce.Do(func() {
		activeESClient, err = elasticsearch.NewDefaultClient()
	})
	if err != nil {
		return nil, err
	}
	if activeESClient == nil {
		return nil, fmt.Errorf("elasticsearch client is not available")
	}
	return activeESClient, nil
}

func Index(index string, id types.ID, doc interface{}) error {
	c, err := client()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id.String(),
		Body:       bytes.NewReader(buf.Bytes()),
		Refresh:    "true",
	}

	res, err := req.Do(context.Background(), c)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index document %s/%s: %s", index, id.String(), res.Status())
	}
	return nil
}

func DeleteDocumentById(index string, id types.ID) error {
	c, err := client()
	if err != nil {
		return err
	}
	res, err := c.Delete(index, id.String())
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete document %s/%s: %s", index, id.String(), res.Status())
	}
	return nil
}
