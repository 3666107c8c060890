// Package segmetrics builds evaluation metrics and losses for semantic
// segmentation from configuration.
//
// # Quick Start
//
//	reg := segmetrics.NewRegistry(segmetrics.WithLogger(logger))
//	set, err := reg.Metrics(nil, "iou", "precision", "recall", "f1_score")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for batch := range batches {
//	    if err := set.Update(batch.Truth, batch.Pred, nil); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	fmt.Println(set.Results())
//	set.Reset()
//
// # Factories
//
// Every factory has the signature func(*Config) metric.Metric (or loss.Loss)
// so a registry can dispatch on name alone. Values that used to be fixed per
// experiment (class counts, the scoped class id) are Config fields whose
// defaults equal those fixed values; a nil Config selects all defaults.
//
// # Thread Safety
//
// Registry is safe for concurrent use. Metric instances are not: build one
// metric.Set per worker and combine them with metric.Set.Merge.
//
// # Label Encodings
//
// Sparse labels hold a class index per element; one-hot labels and scored
// predictions carry the class axis last. The sparse and one-hot IoU variants
// are not interchangeable, and feeding the wrong encoding with compatible
// sizes produces wrong numbers rather than an error.
package segmetrics
