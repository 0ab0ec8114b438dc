/*
go-zebraproc is a frame processing pipeline for wildlife footage.  It
decodes a video, runs zebra detection on each frame, optionally assigns
stable track identities across frames, burns annotation overlays into an
output video and exports per detection records to CSV or JSON reports.

The root package holds the shared data model (Frame, Detection, Box) and
the error taxonomy.  Video decode/encode lives in the video subpackage,
model inference in detect, cross frame identity assignment in tracker,
overlay drawing in render, luminance/exposure analysis in exposure and
report serialization in report.  The pipeline subpackage is the
composition root that drives the per frame
read -> detect -> track -> annotate -> write loop.

See the cmd subdirectory for the command line front ends.
*/
package zebraproc
