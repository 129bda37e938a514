package chroma

import (
	"context"
	"fmt"
	"log"
	"os"

	boarddomain "mailboard-backend/internal/board/domain"
	"mailboard-backend/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

const collectionName = "emails"

// maxEmbedTextLen caps text sent to the embedding model.
const maxEmbedTextLen = 10000

// ChromaClient implements boarddomain.VectorIndex on Chroma Cloud with
// Gemini embeddings.
type ChromaClient struct {
	client     chroma.Client
	embedFunc  *gemini.GeminiEmbeddingFunction
	config     *config.Config
	collection chroma.Collection
}

func NewChromaClient(cfg *config.Config) (*ChromaClient, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}

	// The Gemini embedding function reads its key from the environment
	if cfg.GeminiAPIKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	var client chroma.Client
	if cfg.ChromaDatabase != "" && cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
		)
	} else if cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithTenant(cfg.ChromaTenant),
		)
	} else {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	ctx := context.Background()
	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("[Chroma] Initialized client with collection: %s", collectionName)

	return &ChromaClient{
		client:     client,
		embedFunc:  embedFunc,
		config:     cfg,
		collection: collection,
	}, nil
}

// Upsert indexes one email by its remote message id. Re-indexing the
// same id replaces the previous document instead of duplicating it.
func (c *ChromaClient) Upsert(ctx context.Context, userID, messageID string, meta boarddomain.EmbeddingMetadata, text string) error {
	if len(text) > maxEmbedTextLen {
		text = text[:maxEmbedTextLen]
	}

	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"user_id":    userID,
		"message_id": messageID,
		"subject":    meta.Subject,
		"from_name":  meta.FromName,
		"from_email": meta.FromEmail,
		"snippet":    meta.Snippet,
		"summary":    meta.Summary,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(messageID)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(text),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert email embedding: %w", err)
	}

	return nil
}

// SearchSimilar queries the index scoped to one user and returns hits
// whose similarity clears minScore. Similarity is 1 - distance.
func (c *ChromaClient) SearchSimilar(ctx context.Context, userID, query string, k int, minScore float64) ([]*boarddomain.VectorHit, error) {
	where := chroma.EqString("user_id", userID)

	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(k),
		chroma.WithWhereQuery(where),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	if results == nil || results.CountGroups() == 0 {
		return []*boarddomain.VectorHit{}, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return []*boarddomain.VectorHit{}, nil
	}

	hits := make([]*boarddomain.VectorHit, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		score := 0.0
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			score = 1 - float64(distanceGroups[0][i])
		}
		if score < minScore {
			continue
		}
		hits = append(hits, &boarddomain.VectorHit{
			MessageID: string(id),
			Score:     score,
		})
	}

	return hits, nil
}

// Delete removes one email's document from the index.
func (c *ChromaClient) Delete(ctx context.Context, messageID string) error {
	err := c.collection.Delete(ctx, chroma.WithIDsDelete(chroma.DocumentID(messageID)))
	if err != nil {
		return fmt.Errorf("failed to delete email embedding: %w", err)
	}

	return nil
}
