// Package lookahead provides the downsampled ("lowres") frame buffers an
// encoder's lookahead stage works on.
//
// A Lowres holds four half-resolution luma planes, one per half-pel phase,
// plus the intra cost, per-row SATD, per-block cost and motion vector tables
// that motion and cost estimation fill in for every pair of frame offsets in
// the lookahead window. This package owns only the lifecycle of that
// structure; it does not estimate motion or costs itself.
//
// The lifecycle is:
//
//	lr, err := lookahead.NewLowres(pic, bframes, nil) // allocate once per window slot
//	err = lr.Init(pic)                                 // per frame: downscale, reset tables
//	...                                                // estimators read and write the tables
//	lr.Destroy()                                       // release everything
//
// Tables that have not been computed since the last Init are marked with
// sentinels in their first element only: RowSatds cells start with
// RowCostUnknown and MVs cells start with a vector whose X is MVUnsearched.
// Consumers must check those before trusting a cell.
//
// A Lowres is owned by one goroutine. Once Init has returned, any number of
// goroutines may read the planes and read or write distinct table cells,
// provided the owner does not call Init or Destroy until they are done.
package lookahead
