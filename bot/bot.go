// Package bot drives computer players. A bot never touches room state
// directly: it builds grids and picks numbers, and whoever owns the
// phase loop feeds those through the same operations a human client
// uses.
package bot

import (
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/bingoserver/game"
	"github.com/wfunc/bingoserver/models"
)

const (
	minThinking = 800 * time.Millisecond
	maxThinking = 2000 * time.Millisecond
)

// Controller 机器人控制器：建格、补格、选号、出手延迟。
// rng 加锁，多个房间循环可以共用一个实例。
type Controller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewController creates a controller seeded from the clock.
func NewController() *Controller {
	return &Controller{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewControllerWithSeed creates a deterministic controller for tests.
func NewControllerWithSeed(seed int64) *Controller {
	return &Controller{rng: rand.New(rand.NewSource(seed))}
}

// BuildGrid returns a fresh random 5x5 grid, a permutation of 1..25.
func (c *Controller) BuildGrid() []int {
	card := models.NewCardState()
	c.mu.Lock()
	game.RandomFill(card, c.rng)
	c.mu.Unlock()
	return card.Grid
}

// CompleteGrid fills the card's remaining empty cells at random, keeping
// whatever was placed manually. Used when the setup window expires.
func (c *Controller) CompleteGrid(card *models.CardState) {
	c.mu.Lock()
	game.RandomFill(card, c.rng)
	c.mu.Unlock()
}

// PickNumber chooses a number to call from the card's unmarked cells,
// uniformly. ok is false when nothing is left to call.
func (c *Controller) PickNumber(card *models.CardState) (number int, ok bool) {
	if card == nil {
		return 0, false
	}
	candidates := game.UnmarkedNumbers(card)
	if len(candidates) == 0 {
		return 0, false
	}
	c.mu.Lock()
	n := candidates[c.rng.Intn(len(candidates))]
	c.mu.Unlock()
	return n, true
}

// ThinkingDelay returns a randomized 0.8~2.0s pause before a bot acts,
// so bot turns read like a player taking a moment.
func (c *Controller) ThinkingDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return minThinking + time.Duration(c.rng.Int63n(int64(maxThinking-minThinking)))
}
