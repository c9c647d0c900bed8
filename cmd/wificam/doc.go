// Command wificam captures raw YUYV frames, encodes them as baseline JPEG
// into a fixed pool of frame buffers and delivers them to a file, HTTP or
// discard sink.
//
// Usage:
//
//	wificam run                       stream with the configured source and sink
//	wificam encode -i raw.yuv -o x.jpg --width 640 --height 480
//	wificam history                   list journaled sessions
//	wificam config init|validate|show manage the configuration file
package main
