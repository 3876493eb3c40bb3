package ops

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/drill/internal/config"
	"github.com/hpungsan/drill/internal/db"
	"github.com/hpungsan/drill/internal/passage"
	"github.com/hpungsan/drill/internal/selection"
)

// goodPassage is a 154-word narrative that passes every quality rule.
const goodPassage = "The river town grew slowly during the early years of the century. Farmers brought their grain to the mill because the roads to the city were long and often flooded. However, the arrival of the railway changed everything within a single decade. Merchants opened new shops along the main street, and they hired young workers from the surrounding villages. The old ferry, which had carried passengers for generations, soon fell out of use. Families who had lived by the water for many years moved closer to the station. Meanwhile, the town council debated whether the mill should be preserved or replaced with a modern factory. Some members argued that history deserved protection, while others believed progress required sacrifice. After months of discussion, they reached a compromise that kept the building standing but changed its purpose. Today the mill houses a small museum, and visitors still walk along the quiet riverbank where the story began."

// listPassage is 142 words of simple sentences without connective cues.
const listPassage = "Cats sleep near warm windows. Dogs chase bright balls across green fields. Birds sing above quiet gardens. Farmers plant corn every spring. Rivers carry cold water toward distant seas. Children read books about ancient kings. Bakers make fresh bread each morning. Sailors watch stars over calm oceans. Painters mix bright colors on wooden boards. Teachers explain simple ideas with patience. Miners dig deep tunnels under steep mountains. Gardeners trim roses along stone paths. Students write careful notes during long lectures. Travelers cross wide deserts on patient camels. Musicians play gentle songs for small crowds. Builders raise strong walls from heavy bricks. Doctors treat sick patients with modern medicine. Writers describe distant places with vivid words. Fishermen mend torn nets beside busy harbors. Farmers feed hungry animals at dawn. Engineers design sturdy bridges over fast rivers. Cooks prepare spicy soups for cold evenings."

func setupTest(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database, config.DefaultConfig()
}

func int64Ptr(v int64) *int64 { return &v }

func float64Ptr(v float64) *float64 { return &v }

// seedPool stores passagesPerGenre passages in each genre, each carrying one easy,
// one medium and one hard item. Item IDs are "<genre>-<n>-<difficulty>".
func seedPool(t *testing.T, database *sql.DB, genres []string, passagesPerGenre int) {
	t.Helper()
	ctx := context.Background()

	for _, genre := range genres {
		sourceID := "src-" + genre
		require.NoError(t, db.InsertSource(ctx, database, &db.Source{
			ID: sourceID, Title: genre, Genre: genre, Type: passage.SourceBook,
			Candidates: passagesPerGenre, Accepted: passagesPerGenre, CreatedAt: 1,
		}))

		var (
			passages []passage.Passage
			items    []db.Item
		)
		for n := range passagesPerGenre {
			text := fmt.Sprintf("A %s passage numbered %d.", genre, n)
			p := passage.Passage{
				ID: passage.ChunkID(text), Text: text, WordCount: passage.CountWords(text),
				SourceTitle: genre, Genre: genre, SourceType: passage.SourceBook,
			}
			passages = append(passages, p)
			for _, d := range selection.Difficulties {
				items = append(items, db.Item{
					Item:      selection.Item{ID: fmt.Sprintf("%s-%d-%s", genre, n, d), PassageID: p.ID, Difficulty: d},
					CreatedAt: 1,
				})
			}
		}
		_, err := db.InsertPassages(ctx, database, sourceID, passages, 1)
		require.NoError(t, err)
		require.NoError(t, db.InsertItems(ctx, database, items))
	}
}
