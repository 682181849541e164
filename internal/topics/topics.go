package topics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"clonerp/internal/app"
	"clonerp/internal/metrics"
	"clonerp/internal/models"
	"clonerp/internal/store"
)

// PopularCount is how many topics the main page ranks.
const PopularCount = 3

type Registry struct {
	topics *store.Collection[[]models.Topic]
	now    func() time.Time
	log    zerolog.Logger
}

func NewRegistry(topics *store.Collection[[]models.Topic], logger zerolog.Logger, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		topics: topics,
		now:    now,
		log:    logger.With().Str("component", "topics").Logger(),
	}
}

type Listing struct {
	Topics  []models.Topic // creation order
	Popular []models.Topic // top PopularCount by visits
}

func (r *Registry) List() Listing {
	var all []models.Topic
	r.topics.Read(func(doc []models.Topic) {
		all = append([]models.Topic(nil), doc...)
	})
	return Listing{Topics: all, Popular: Popular(all, PopularCount)}
}

// Popular returns up to n topics ordered by visit count, highest first.
// Topics with equal counts keep their relative order.
func Popular(topics []models.Topic, n int) []models.Topic {
	ranked := append([]models.Topic(nil), topics...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].VisitCount > ranked[j].VisitCount
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Create appends a topic with id one above the highest existing id.
func (r *Registry) Create(ctx context.Context, title, content, author string) (models.Topic, error) {
	if title == "" || content == "" {
		return models.Topic{}, fmt.Errorf("%w: title and content are required", app.ErrValidation)
	}

	var created models.Topic
	err := r.topics.Update(ctx, func(doc *[]models.Topic) error {
		maxID := 0
		for _, t := range *doc {
			if t.ID > maxID {
				maxID = t.ID
			}
		}
		created = models.Topic{
			ID:      maxID + 1,
			Title:   title,
			Content: content,
			Author:  author,
			Date:    r.now().Format(models.TopicDateLayout),
		}
		*doc = append(*doc, created)
		return nil
	})
	if err != nil {
		return models.Topic{}, err
	}
	metrics.TopicsCreated.Inc()
	r.log.Info().Int("id", created.ID).Str("author", author).Msg("topic created")
	return created, nil
}

// View counts one visit and returns the topic as persisted afterwards.
func (r *Registry) View(ctx context.Context, id int) (models.Topic, error) {
	var viewed models.Topic
	err := r.topics.Update(ctx, func(doc *[]models.Topic) error {
		for i := range *doc {
			if (*doc)[i].ID == id {
				(*doc)[i].VisitCount++
				viewed = (*doc)[i]
				return nil
			}
		}
		return fmt.Errorf("%w: topic %d", app.ErrNotFound, id)
	})
	if err != nil {
		return models.Topic{}, err
	}
	metrics.TopicViews.Inc()
	return viewed, nil
}
