package monitoring

import "tweetwatch/internal/models"

// SelectNew computes which fetched tweets are genuinely new relative to the
// watermark and returns them oldest first, the order they must be delivered.
//
// items is newest first, as the timeline API returns it. The scan collects
// tweets until it hits the watermark or runs out. Two deliberate policies fall
// out of "runs out":
//
//   - An empty watermark means the account has never had a delivery; the whole
//     batch is delivered so a freshly followed account shows its most recent
//     posts immediately. The flood is bounded by the fetch count.
//   - A watermark that no fetched tweet matches (the account out-posted the
//     fetch window, or deleted the watermarked tweet) also yields the whole
//     batch. There is no gap detection; a long outage can re-deliver up to one
//     fetch window of already-seen posts.
func SelectNew(items []models.Tweet, watermark string) []models.Tweet {
	fresh := make([]models.Tweet, 0, len(items))
	for _, item := range items {
		if watermark != "" && item.ID == watermark {
			break
		}
		fresh = append(fresh, item)
	}

	// Reverse to chronological order for delivery.
	for i, j := 0, len(fresh)-1; i < j; i, j = i+1, j-1 {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	}

	return fresh
}
