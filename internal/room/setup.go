package room

import (
	"math/rand/v2"

	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
)

// PoolOrder is the auction order for a new room: every catalog entity,
// shuffled once by rng.
func PoolOrder(cat *catalog.Catalog, rng *rand.Rand) []catalog.EntityID {
	ids := cat.EntityIDs()
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}
