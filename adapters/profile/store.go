package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/montanaflynn/stats"

	"cloneops/internal/errors"
)

// userIDPattern is the only accepted user id shape for profile and facepack
// lookups.
var userIDPattern = regexp.MustCompile(`^user_\d{5}$`)

// ValidUserID reports whether a raw user id may touch the filesystem.
func ValidUserID(userID string) bool {
	return userIDPattern.MatchString(userID)
}

// Store reads per-user profile JSON files and facepack images from candidate
// directories. Read-only.
type Store struct {
	profilesDir string
	facepackDir string
	roots       []string
}

// NewStore creates a profile store searching the given roots in order.
func NewStore(profilesDir, facepackDir string, roots []string) *Store {
	return &Store{profilesDir: profilesDir, facepackDir: facepackDir, roots: roots}
}

// rawProfile is the on-disk profile shape. Only the fields the dashboard
// aggregates are decoded.
type rawProfile struct {
	UserID          string  `json:"user_id"`
	NormalizedScore float64 `json:"normalized_engagement_score"`
	Activities      []struct {
		EventName string `json:"event_name"`
		EventData struct {
			Quantity    float64 `json:"quantity"`
			Price       float64 `json:"price"`
			TotalAmount float64 `json:"total_amount"`
		} `json:"event_data"`
	} `json:"activities"`
	Reviews []struct {
		ReviewTitle   string   `json:"review_title"`
		ReviewContent string   `json:"review_content"`
		Rating        *float64 `json:"rating"`
	} `json:"reviews"`
	Dialogues     []map[string]any `json:"dialogues"`
	Subscriptions []any            `json:"subscriptions"`
}

// ReviewSummary is one condensed review for display.
type ReviewSummary struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Rating  *float64 `json:"rating,omitempty"`
}

// Summary is the aggregated view of one user's profile.
type Summary struct {
	UserID             string          `json:"user_id"`
	NormalizedScore    float64         `json:"normalized_engagement_score"`
	EventCounts        map[string]int  `json:"event_counts"`
	ReviewsCount       int             `json:"reviews_count"`
	ReviewTitles       []string        `json:"review_titles"`
	Reviews            []ReviewSummary `json:"reviews_detail"`
	DialoguesTotal     int             `json:"dialogues_total"`
	DialoguesUserCount int             `json:"dialogues_user_count"`
	SubscriptionsCount int             `json:"subscriptions_count"`
	AddToCartQtyTotal  float64         `json:"add_to_cart_qty_total"`
	AddToCartValue     float64         `json:"add_to_cart_value_total"`
	PurchaseAmounts    []float64       `json:"purchase_amounts"`
	Path               string          `json:"path"`
}

// Summarize loads and aggregates one user's profile file.
func (s *Store) Summarize(ctx context.Context, userID string) (*Summary, error) {
	if !ValidUserID(userID) {
		return nil, errors.InvalidInput("invalid user_id")
	}
	path, err := s.findProfile(userID)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read profile %s", path)
	}
	var p rawProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrapf(err, "profile %s is malformed", path)
	}

	sum := &Summary{
		UserID:          userID,
		NormalizedScore: p.NormalizedScore,
		EventCounts:     make(map[string]int),
		Path:            path,
	}
	for _, a := range p.Activities {
		name := strings.TrimSpace(a.EventName)
		if name == "" {
			continue
		}
		sum.EventCounts[name]++
		switch name {
		case "add_to_cart":
			sum.AddToCartQtyTotal += a.EventData.Quantity
			sum.AddToCartValue += a.EventData.Quantity * a.EventData.Price
		case "purchase_completed":
			sum.PurchaseAmounts = append(sum.PurchaseAmounts, a.EventData.TotalAmount)
		}
	}
	sum.AddToCartValue = math.Round(sum.AddToCartValue*100) / 100

	sum.ReviewsCount = len(p.Reviews)
	for _, r := range p.Reviews {
		title := strings.TrimSpace(r.ReviewTitle)
		if title != "" {
			sum.ReviewTitles = append(sum.ReviewTitles, title)
		}
		rating := r.Rating
		if rating != nil {
			clamped := math.Max(0, math.Min(5, *rating))
			rating = &clamped
		}
		sum.Reviews = append(sum.Reviews, ReviewSummary{
			Title:   title,
			Content: strings.TrimSpace(r.ReviewContent),
			Rating:  rating,
		})
	}

	sum.DialoguesTotal = len(p.Dialogues)
	for _, d := range p.Dialogues {
		role, _ := d["role"].(string)
		if role == "" {
			role, _ = d["Role"].(string)
		}
		if strings.EqualFold(role, "user") {
			sum.DialoguesUserCount++
		}
	}
	sum.SubscriptionsCount = len(p.Subscriptions)
	return sum, nil
}

// MetricValues holds one figure per tracked metric.
type MetricValues struct {
	ProductView       float64 `json:"product_view"`
	AddToCart         float64 `json:"add_to_cart"`
	PurchaseCompleted float64 `json:"purchase_completed"`
	Reviews           float64 `json:"reviews"`
	Subscriptions     float64 `json:"subscriptions"`
	Dialogues         float64 `json:"dialogues"`
}

// Metrics is the corpus-wide normalization envelope: per-metric max and 95th
// percentile across every profile file.
type Metrics struct {
	CountProfiles int          `json:"count_profiles"`
	Max           MetricValues `json:"max"`
	P95           MetricValues `json:"p95"`
}

// ComputeMetrics walks the profiles directory once and aggregates. Malformed
// profile files are skipped, not fatal.
func (s *Store) ComputeMetrics(ctx context.Context) (*Metrics, error) {
	dir, err := s.findProfilesDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list profiles dir %s", dir)
	}

	series := map[string][]float64{
		"product_view": {}, "add_to_cart": {}, "purchase_completed": {},
		"reviews": {}, "subscriptions": {}, "dialogues": {},
	}
	count := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var p rawProfile
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		counts := map[string]float64{"product_view": 0, "add_to_cart": 0, "purchase_completed": 0}
		for _, a := range p.Activities {
			if _, ok := counts[a.EventName]; ok {
				counts[a.EventName]++
			}
		}
		series["product_view"] = append(series["product_view"], counts["product_view"])
		series["add_to_cart"] = append(series["add_to_cart"], counts["add_to_cart"])
		series["purchase_completed"] = append(series["purchase_completed"], counts["purchase_completed"])
		series["reviews"] = append(series["reviews"], float64(len(p.Reviews)))
		series["subscriptions"] = append(series["subscriptions"], float64(len(p.Subscriptions)))
		series["dialogues"] = append(series["dialogues"], float64(len(p.Dialogues)))
		count++
	}

	m := &Metrics{CountProfiles: count}
	m.Max = MetricValues{
		ProductView:       seriesMax(series["product_view"]),
		AddToCart:         seriesMax(series["add_to_cart"]),
		PurchaseCompleted: seriesMax(series["purchase_completed"]),
		Reviews:           seriesMax(series["reviews"]),
		Subscriptions:     seriesMax(series["subscriptions"]),
		Dialogues:         seriesMax(series["dialogues"]),
	}
	m.P95 = MetricValues{
		ProductView:       seriesP95(series["product_view"]),
		AddToCart:         seriesP95(series["add_to_cart"]),
		PurchaseCompleted: seriesP95(series["purchase_completed"]),
		Reviews:           seriesP95(series["reviews"]),
		Subscriptions:     seriesP95(series["subscriptions"]),
		Dialogues:         seriesP95(series["dialogues"]),
	}
	return m, nil
}

// FacepackPath resolves a user's PNG across candidate directories.
func (s *Store) FacepackPath(userID string) (string, error) {
	if !ValidUserID(userID) {
		return "", errors.InvalidInput("invalid user_id")
	}
	name := userID + ".png"
	for _, root := range s.roots {
		path := filepath.Join(root, s.facepackDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.NotFound(fmt.Sprintf("facepack for %s", userID))
}

func (s *Store) findProfile(userID string) (string, error) {
	name := fmt.Sprintf("profile_%s.json", userID)
	for _, root := range s.roots {
		path := filepath.Join(root, s.profilesDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.NotFound(fmt.Sprintf("profile for %s", userID))
}

func (s *Store) findProfilesDir() (string, error) {
	for _, root := range s.roots {
		path := filepath.Join(root, s.profilesDir)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path, nil
		}
	}
	return "", errors.CorpusMissing(s.profilesDir)
}

func seriesMax(values []float64) float64 {
	max := 0.0
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}

func seriesP95(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	p, err := stats.Percentile(stats.Float64Data(values), 95)
	if err != nil {
		return seriesMax(values)
	}
	return p
}
