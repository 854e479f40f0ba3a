package script

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/reelsmith/reelsmith/internal/history"
	"github.com/reelsmith/reelsmith/internal/services/reddit"
	"github.com/reelsmith/reelsmith/internal/utils"
)

// RedditServiceKey is the context key under which tests inject a fake Reddit service
const RedditServiceKey = contextKey("reddit_service")

// ErrNoRedditPosts is returned when no fetched post survives the engagement filters
var ErrNoRedditPosts = errors.New("no suitable reddit posts found")

// Default subreddits used when the configuration names none
var (
	defaultStorySubreddits = []string{"tifu", "AmItheAsshole"}
	defaultAskSubreddits   = []string{"AskReddit", "AskMen", "AskWomen", "TooAfraidToAsk", "NoStupidQuestions"}
)

// Engagement thresholds for candidate posts. Selection starts strict and is
// relaxed one rung at a time when nothing qualifies.
const (
	minPostScore     = 1000
	floorPostScore   = 500
	minStoryComments = 15
	minAskComments   = 100
	floorAskComments = 50
	minUpvoteRatio   = 0.84
	fetchLimit       = 100
	maxStoryWords    = 400
	maxCommentWords  = 80
	maxAskAnswers    = 5
)

// Title words that tend to stop a scrolling viewer
var (
	storyHooks = []string{
		"secret", "shocking", "never", "why", "how", "discovered",
		"truth", "hidden", "revealed", "crazy", "insane", "unbelievable",
		"what happened", "found out", "ruined", "saved", "destroyed",
	}
	askHooks = []string{
		"what", "why", "how", "best", "worst", "weirdest", "craziest",
		"secret", "ever", "never", "most", "scariest", "strangest",
		"regret", "wish", "would you", "have you",
	}
)

// getRedditService returns a Reddit service from context or creates a real one
func (m *Module) getRedditService(ctx context.Context) (reddit.Servicer, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	if service, ok := ctx.Value(RedditServiceKey).(reddit.Servicer); ok {
		return service, nil
	}

	return reddit.NewService()
}

// executeReddit sources the narration from a real Reddit post instead of the
// generation model. Used posts are remembered in the shared usage history so
// repeat prevention spans runs.
func (m *Module) executeReddit(ctx context.Context, p Params) (*Content, error) {
	service, err := m.getRedditService(ctx)
	if err != nil {
		return nil, err
	}

	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	hist := &history.History{}
	if p.HistoryFile != "" {
		loaded, err := history.Load(p.HistoryFile)
		if err != nil {
			utils.LogWarning("Could not load usage history: %v", err)
		} else {
			hist = loaded
		}
	}

	subs := p.Subreddits
	if p.Source == "askreddit" {
		subs = p.AskSubreddits
		if len(subs) == 0 {
			subs = defaultAskSubreddits
		}
	} else if len(subs) == 0 {
		subs = defaultStorySubreddits
	}
	subreddit := subs[rng.Intn(len(subs))]

	utils.LogInfo("Fetching this week's top posts from r/%s", subreddit)
	posts, err := service.TopPosts(ctx, subreddit, fetchLimit)
	if err != nil {
		return nil, err
	}

	var content *Content
	var postID string
	if p.Source == "askreddit" {
		content, postID, err = buildAskContent(ctx, service, posts, hist, p.AvoidRepeats, rng)
	} else {
		content, postID, err = buildStoryContent(posts, hist, p.AvoidRepeats, rng)
	}
	if err != nil {
		return nil, err
	}

	if p.AvoidRepeats && p.HistoryFile != "" {
		hist.AddPost(postID)
		if err := hist.Save(p.HistoryFile); err != nil {
			utils.LogWarning("Could not save usage history: %v", err)
		}
	}

	return content, nil
}

// buildStoryContent turns the best self-post into narration content
func buildStoryContent(posts []reddit.Post, hist *history.History, avoidRepeats bool, rng *rand.Rand) (*Content, string, error) {
	selected, err := pickStoryPost(posts, hist, avoidRepeats, rng)
	if err != nil {
		return nil, "", err
	}
	utils.LogVerbose("Selected post %s from r/%s (score %d)", selected.ID, selected.Subreddit, selected.Score)

	return &Content{
		Title:    CleanRedditTitle(selected.Title),
		Story:    truncateWords(CleanRedditText(selected.Body), maxStoryWords),
		Hashtags: redditHashtags(selected.Subreddit),
	}, selected.ID, nil
}

// buildAskContent turns a question post and its best answers into narration content
func buildAskContent(ctx context.Context, service reddit.Servicer, posts []reddit.Post, hist *history.History, avoidRepeats bool, rng *rand.Rand) (*Content, string, error) {
	selected, err := pickAskPost(posts, hist, avoidRepeats, rng)
	if err != nil {
		return nil, "", err
	}

	utils.LogInfo("Fetching top comments for %q", selected.Title)
	comments, err := service.TopComments(ctx, selected.ID)
	if err != nil {
		return nil, "", err
	}

	story, err := BuildAskStory(comments)
	if err != nil {
		return nil, "", err
	}

	return &Content{
		Title:    CleanRedditTitle(selected.Title),
		Story:    story,
		Hashtags: redditHashtags(selected.Subreddit),
	}, selected.ID, nil
}

// pickStoryPost filters the candidates and picks from the top fifth by
// engagement. Thresholds drop one rung, then repeat avoidance is abandoned,
// before giving up.
func pickStoryPost(posts []reddit.Post, hist *history.History, avoidRepeats bool, rng *rand.Rand) (reddit.Post, error) {
	for _, minScore := range []int{minPostScore, floorPostScore} {
		if pick, ok := pickTopPost(filterStoryPosts(posts, hist, avoidRepeats, minScore), scoreStoryPost, rng); ok {
			return pick, nil
		}
	}
	if avoidRepeats {
		utils.LogInfo("All engaging posts used, retrying without repeat avoidance")
		if pick, ok := pickTopPost(filterStoryPosts(posts, hist, false, floorPostScore), scoreStoryPost, rng); ok {
			return pick, nil
		}
	}
	return reddit.Post{}, ErrNoRedditPosts
}

func pickAskPost(posts []reddit.Post, hist *history.History, avoidRepeats bool, rng *rand.Rand) (reddit.Post, error) {
	rungs := []struct{ score, comments int }{
		{minPostScore, minAskComments},
		{floorPostScore, floorAskComments},
	}
	for _, rung := range rungs {
		if pick, ok := pickTopPost(filterAskPosts(posts, hist, avoidRepeats, rung.score, rung.comments), scoreAskPost, rng); ok {
			return pick, nil
		}
	}
	if avoidRepeats {
		utils.LogInfo("All engaging questions used, retrying without repeat avoidance")
		if pick, ok := pickTopPost(filterAskPosts(posts, hist, false, floorPostScore, floorAskComments), scoreAskPost, rng); ok {
			return pick, nil
		}
	}
	return reddit.Post{}, ErrNoRedditPosts
}

func filterStoryPosts(posts []reddit.Post, hist *history.History, avoidRepeats bool, minScore int) []reddit.Post {
	var out []reddit.Post
	for _, p := range posts {
		if avoidRepeats && hist.HasPost(p.ID) {
			continue
		}
		if len(p.Body) < 200 || len(p.Body) > 5000 {
			continue
		}
		if p.Score <= minScore || p.NumComments <= minStoryComments || p.UpvoteRatio <= minUpvoteRatio {
			continue
		}
		if p.NSFW || p.Stickied {
			continue
		}
		if strings.Contains(p.Body, "[removed]") || strings.Contains(p.Body, "[deleted]") {
			continue
		}
		out = append(out, p)
	}
	return out
}

func filterAskPosts(posts []reddit.Post, hist *history.History, avoidRepeats bool, minScore, minComments int) []reddit.Post {
	var out []reddit.Post
	for _, p := range posts {
		if avoidRepeats && hist.HasPost(p.ID) {
			continue
		}
		if p.NumComments <= minComments || p.Score <= minScore || p.UpvoteRatio <= minUpvoteRatio {
			continue
		}
		if p.NSFW || p.Stickied {
			continue
		}
		out = append(out, p)
	}
	return out
}

// pickTopPost sorts candidates by engagement and picks randomly from the top fifth
func pickTopPost(posts []reddit.Post, score func(reddit.Post) float64, rng *rand.Rand) (reddit.Post, bool) {
	if len(posts) == 0 {
		return reddit.Post{}, false
	}
	sort.Slice(posts, func(i, j int) bool { return score(posts[i]) > score(posts[j]) })
	top := posts[:max(1, len(posts)/5)]
	return top[rng.Intn(len(top))], true
}

func scoreStoryPost(p reddit.Post) float64 {
	score := float64(p.Score)*4 + float64(p.NumComments)*3 + p.UpvoteRatio*2000
	if containsAny(strings.ToLower(p.Title), storyHooks) {
		score += 500
	}
	return score
}

func scoreAskPost(p reddit.Post) float64 {
	score := float64(p.Score)*3 + float64(p.NumComments)*5 + p.UpvoteRatio*1000
	if containsAny(strings.ToLower(p.Title), askHooks) {
		score += 1000
	}
	return score
}

// BuildAskStory turns the question's best answers into an enumerated narration
func BuildAskStory(comments []reddit.Comment) (string, error) {
	var good []reddit.Comment
	for _, c := range comments {
		if len(c.Body) <= 20 || len(c.Body) >= 2000 {
			continue
		}
		if c.Score <= 50 {
			continue
		}
		if strings.Contains(c.Body, "[removed]") || strings.Contains(c.Body, "[deleted]") {
			continue
		}
		good = append(good, c)
	}
	if len(good) == 0 {
		return "", fmt.Errorf("no usable comments on the selected post")
	}

	sort.Slice(good, func(i, j int) bool { return good[i].Score > good[j].Score })
	if len(good) > maxAskAnswers {
		good = good[:maxAskAnswers]
	}

	parts := make([]string, 0, len(good))
	for i, c := range good {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, truncateWords(CleanRedditText(c.Body), maxCommentWords)))
	}
	return truncateWords(strings.Join(parts, " "), maxStoryWords), nil
}

var (
	aitaRe    = regexp.MustCompile(`(?i)\bAITA\b`)
	tifuRe    = regexp.MustCompile(`(?i)\bTIFU\b`)
	prefixRe  = regexp.MustCompile(`(?i)^(TIL|ELI5|LPT)[\s:]+`)
	bracketRe = regexp.MustCompile(`\[.*?\]`)
	boldRe    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe  = regexp.MustCompile(`\*(.*?)\*`)
	strikeRe  = regexp.MustCompile(`~~(.*?)~~`)
	urlRe     = regexp.MustCompile(`https?://\S+`)
	mentionRe = regexp.MustCompile(`/?\b[ur]/[A-Za-z0-9_-]+`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// CleanRedditTitle expands subreddit jargon and strips tags so the title
// reads well aloud
func CleanRedditTitle(title string) string {
	title = aitaRe.ReplaceAllString(title, "Am I the asshole")
	title = tifuRe.ReplaceAllString(title, "Today I messed up")
	title = prefixRe.ReplaceAllString(title, "")
	title = bracketRe.ReplaceAllString(title, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(title, " "))
}

// CleanRedditText removes markdown, links and user mentions from post text
func CleanRedditText(text string) string {
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = strikeRe.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, "&gt;", "")
	text = urlRe.ReplaceAllString(text, "")
	text = mentionRe.ReplaceAllString(text, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

var subredditHashtags = map[string]string{
	"nosleep":       "#horror #scary #stories",
	"tifu":          "#fail #funny #storytime",
	"amitheasshole": "#aita #drama #storytime",
	"askreddit":     "#askreddit #stories #real",
	"todayilearned": "#facts #mindblown #education",
}

func redditHashtags(subreddit string) string {
	if tags, ok := subredditHashtags[strings.ToLower(subreddit)]; ok {
		return tags
	}
	return "#reddit #stories #real"
}

func truncateWords(s string, limit int) string {
	words := strings.Fields(s)
	if len(words) <= limit {
		return s
	}
	return strings.Join(words[:limit], " ") + "..."
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
