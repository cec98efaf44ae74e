// Package domain models outage notices and exam-body news gathered from
// independent public sources, and the pure transformations that turn them into
// one ranked feed.
//
// # Data Sources
//
// Reports come from utility and regulator bulletins (tier OFFICIAL), news
// outlets and syndicated feeds (MEDIA), and social or community posts
// (COMMUNITY). Each source belongs to one vertical: POWER for electricity
// supply, EXAMS for examination bodies. Adapters in package source turn each
// fetched document into [RawCandidate] values; everything after that lives here.
//
// # Civil Time
//
// Every instant is resolved into a fixed +01:00 zone ([CivilZone]). The target
// region does not observe daylight saving time, so no zone database is used.
// [FormatCivil] and [ParseCivil] round-trip with nanosecond precision.
//
// Publication timestamps vary by source:
//
//	RFC 3339            2025-10-12T08:30:00+01:00
//	Day-first numeric   12/10/2025, 12-10-25
//	RFC 1123 and prose  Sun, 12 Oct 2025 08:30:00 GMT, October 12, 2025
//
// Strings without an offset are read as civil wall-clock time.
//
// # Planned Windows
//
// [ExtractWindow] reads scheduled-interruption prose such as
//
//	"Maintenance scheduled from 8:00am to 5:00pm on 12/10/2025."
//
// Date tokens are found first and blanked out, then the remaining text is
// scanned for a time range or standalone times. A time token needs either
// minutes ("8:00") or a meridiem ("8am"); a bare "8" is ignored. Missing start
// and end times default to 09:00 and 17:00. Two-digit years gain a "20"
// prefix, and month names match on their first three letters. A window whose
// end precedes its start loses the end.
//
// # Classification
//
// [ApplyHeuristics] assigns PLANNED, RESTORED or UNPLANNED from vocabulary and
// checks relevance against per-vertical keywords. [EnrichWithJudgment] layers
// an optional [Judge] on top; when the judge is absent or fails, the heuristic
// result stands.
//
// # Deduplication
//
// [Deduplicate] clusters items by token-Jaccard similarity of their titles
// (and title plus summary when both have one). Within a cluster the
// authority source wins, then the higher tier, then the vertical's
// [TieBreak] policy.
//
// # ID Generation
//
// Item IDs are "<source>-<hex>" where hex is the first 8 bytes of
// SHA-256(source|canonical URL|civil publication time). Re-ingesting the same
// report yields the same ID. See [generateID].
package domain
