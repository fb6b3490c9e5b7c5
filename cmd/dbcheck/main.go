// dbcheck is a small operator tool for poking at the align-engine database.
//
//	dbcheck              overview: row counts and per-source totals
//	dbcheck recent [n]   latest n transcripts (default 15)
//	dbcheck prune <days> [apply]
//	                     delete transcripts older than <days>; dry run
//	                     unless "apply" is given
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	pool, err := pgxpool.New(context.Background(), os.Getenv("DATABASE_URL"))
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	ctx := context.Background()

	if len(os.Args) > 1 && os.Args[1] == "recent" {
		n := 15
		if len(os.Args) > 2 {
			if v, err := strconv.Atoi(os.Args[2]); err == nil && v > 0 {
				n = v
			}
		}
		showRecent(ctx, pool, n)
		return
	}

	if len(os.Args) > 1 && os.Args[1] == "prune" {
		days := 0
		if len(os.Args) > 2 {
			days, _ = strconv.Atoi(os.Args[2])
		}
		if days <= 0 {
			fmt.Println("usage: dbcheck prune <days> [apply]")
			return
		}
		dryRun := !(len(os.Args) > 3 && os.Args[3] == "apply")
		prune(ctx, pool, days, dryRun)
		return
	}

	showOverview(ctx, pool)
}

func showOverview(ctx context.Context, pool *pgxpool.Pool) {
	var total int64
	pool.QueryRow(ctx, "SELECT count(*) FROM transcripts").Scan(&total)
	fmt.Printf("Transcripts: %d\n", total)
	if total == 0 {
		return
	}

	var oldest, newest time.Time
	pool.QueryRow(ctx, "SELECT min(created_at), max(created_at) FROM transcripts").Scan(&oldest, &newest)
	fmt.Printf("Oldest: %s   Newest: %s\n\n", oldest.Format(time.RFC3339), newest.Format(time.RFC3339))

	fmt.Println("Source     Count      Words      Unknown    Avg align")
	fmt.Println("────────────────────────────────────────────────────────")
	rows, err := pool.Query(ctx, `
		SELECT source, count(*), coalesce(sum(word_count), 0),
		       coalesce(sum(unknown_words), 0), coalesce(avg(align_ms), 0)
		FROM transcripts
		GROUP BY source
		ORDER BY source
	`)
	if err != nil {
		fmt.Println("query failed:", err)
		return
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count, words, unknown int64
		var avgAlign float64
		rows.Scan(&source, &count, &words, &unknown, &avgAlign)
		fmt.Printf("%-10s %-10d %-10d %-10d %.1fms\n", source, count, words, unknown, avgAlign)
	}
}

func showRecent(ctx context.Context, pool *pgxpool.Pool, n int) {
	rows, err := pool.Query(ctx, `
		SELECT job_id, name, source, word_count, speaker_count, unknown_words, align_ms, created_at
		FROM transcripts
		ORDER BY created_at DESC
		LIMIT $1
	`, n)
	if err != nil {
		fmt.Println("query failed:", err)
		return
	}
	defer rows.Close()

	fmt.Println("Created              Source   Words  Spkrs  Unk    Align    Name")
	fmt.Println("──────────────────────────────────────────────────────────────────────")
	for rows.Next() {
		var jobID, name, source string
		var words, speakers, unknown, alignMs int
		var createdAt time.Time
		rows.Scan(&jobID, &name, &source, &words, &speakers, &unknown, &alignMs, &createdAt)
		if name == "" {
			name = jobID
		}
		fmt.Printf("%-20s %-8s %-6d %-6d %-6d %-8s %s\n",
			createdAt.Format("2006-01-02 15:04:05"), source, words, speakers, unknown,
			fmt.Sprintf("%dms", alignMs), name)
	}
}

func prune(ctx context.Context, pool *pgxpool.Pool, days int, dryRun bool) {
	if dryRun {
		var count int64
		err := pool.QueryRow(ctx,
			"SELECT count(*) FROM transcripts WHERE created_at < now() - make_interval(days => $1)",
			days).Scan(&count)
		if err != nil {
			fmt.Println("query failed:", err)
			return
		}
		fmt.Printf("Would delete %d transcripts older than %d days (run with 'apply' to delete)\n", count, days)
		return
	}

	tag, err := pool.Exec(ctx,
		"DELETE FROM transcripts WHERE created_at < now() - make_interval(days => $1)",
		days)
	if err != nil {
		fmt.Println("delete failed:", err)
		return
	}
	fmt.Printf("Deleted %d transcripts older than %d days\n", tag.RowsAffected(), days)
}
