// Package gallery fetches and parses wallpaper gallery pages.
//
// Client is shared by every download task of a run: FetchPage turns one
// search results page into image links, OpenImage streams a full-size
// image and Ping checks that the site answers. Links wraps FetchPage in a
// pull-based Cursor over a range of pages.
package gallery
