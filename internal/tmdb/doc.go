// Package tmdb fetches movie attributes from The Movie Database.
//
// The client wraps the details endpoint with keywords appended so one
// request yields everything the catalog stores for a movie: title, year,
// synopsis, genres, keywords and vote average. Requests are throttled by a
// token bucket configured from tmdb.requests_per_second.
package tmdb
