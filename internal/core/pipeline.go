package core

import (
	"context"
	"fmt"
	"runtime/debug"

	"cardgen/internal/classify"
	"cardgen/internal/dictionary"
	"cardgen/internal/generate"
	"cardgen/internal/llm"
	"cardgen/internal/source"
	"cardgen/pkg/schema"
)

// maxReportedCategoryIDs bounds how many configured category ids a
// config-missing result lists.
const maxReportedCategoryIDs = 20

// Finding levels for the pre-flight audit.
const (
	findingError   = "error"
	findingWarning = "warning"
)

// Pipeline runs the full card generation sequence for one article:
// classification, image analysis, color detection, batched characteristic
// refinement, merge, and the description and title loops.
type Pipeline struct {
	products      source.ProductSource
	fixed         source.FixedDataSource
	store         *dictionary.Store
	client        llm.Completer
	maxIterations int
	logger        Logger
}

// NewPipeline wires a pipeline. fixed may be nil when no spreadsheet is
// configured; maxIterations <= 0 falls back to DefaultMaxIterations.
func NewPipeline(products source.ProductSource, fixed source.FixedDataSource, store *dictionary.Store, client llm.Completer, maxIterations int, logger Logger) *Pipeline {
	if fixed == nil {
		fixed = source.NopFixedData{}
	}
	if maxIterations <= 0 {
		maxIterations = schema.DefaultMaxIterations
	}
	if logger == nil {
		logger = NewLogger("info")
	}
	return &Pipeline{
		products:      products,
		fixed:         fixed,
		store:         store,
		client:        client,
		maxIterations: maxIterations,
		logger:        logger,
	}
}

// Process runs the pipeline for one article. It never returns an error:
// every failure mode, including a panic, comes back as a CardResult with
// Status set to StatusError and the failure classified in ErrorType.
// log receives human-readable step messages and may be nil.
func (p *Pipeline) Process(ctx context.Context, article string, log func(string)) (res *schema.CardResult) {
	if log == nil {
		log = func(string) {}
	}

	runID, err := schema.NewRunID()
	if err != nil {
		runID = "RUN-unknown"
	}
	runLog := p.logger.With("run_id", runID, "article", article)

	defer func() {
		if r := recover(); r != nil {
			runLog.Error("pipeline panic", "panic", fmt.Sprint(r))
			res = &schema.CardResult{
				RunID:     runID,
				Status:    schema.StatusError,
				ErrorType: schema.ErrorTypeUnexpected,
				Article:   article,
				Message:   fmt.Sprintf("panic: %v", r),
				Detail:    string(debug.Stack()),
			}
		}
	}()

	log("loading card data")
	product, err := p.products.ProductByArticle(ctx, article)
	if err != nil {
		log(fmt.Sprintf("card lookup failed: %v", err))
		return p.failure(runID, article, err)
	}

	res = &schema.CardResult{
		RunID:              runID,
		Article:            article,
		NmID:               product.NmID,
		CategoryID:         product.CategoryID,
		SubjectName:        product.SubjectName,
		OldTitle:           product.Title,
		OldDescription:     product.Description,
		OldCharacteristics: product.Characteristics,
		PhotoURLs:          product.PhotoURLs,
	}
	log(fmt.Sprintf("category %d (%s)", product.CategoryID, product.SubjectName))

	cfg, err := p.store.CategoryConfig(product.CategoryID)
	if err != nil {
		log(fmt.Sprintf("category config: %v", err))
		fail := p.failure(runID, article, err)
		fail.NmID = product.NmID
		fail.CategoryID = product.CategoryID
		fail.SubjectName = product.SubjectName
		return fail
	}

	row, err := p.fixed.RowByArticle(article)
	if err != nil {
		runLog.Warn("fixed data unavailable", "error", err)
		row = nil
	}
	fixedData := source.SplitFixedValues(row)
	res.FixedRow = row

	attrs, err := p.products.CategoryAttributes(ctx, product.CategoryID)
	if err != nil {
		log(fmt.Sprintf("attribute schema lookup failed: %v", err))
		return p.failure(runID, article, err)
	}

	known := knownControllingValues(cfg, product.Characteristics)
	cls := classify.Classify(attrs, cfg, known)
	locked := cls.LockedFields(fixedData)

	var generateFields []schema.AttributeSchema
	for _, f := range cls.Generate {
		if !locked[f.Name] {
			generateFields = append(generateFields, f)
		}
	}
	targetNames := fieldNames(generateFields)
	log(fmt.Sprintf("fields: %d fixed, %d skip, %d to generate",
		len(cls.Fixed), len(cls.Skip), len(generateFields)))

	allowed, err := p.store.AllowedValues(targetNames)
	if err != nil {
		return p.failure(runID, article, err)
	}
	limits, err := p.store.Limits(targetNames)
	if err != nil {
		return p.failure(runID, article, err)
	}

	log("step 1: analyzing images")
	analyzer := generate.NewImageAnalyzer(p.client, log)
	imageDescription := analyzer.Describe(ctx, product.PhotoURLs, product.SubjectName, targetNames)
	res.ImageDescription = imageDescription

	log("step 2: detecting colors")
	detector := generate.NewColorDetector(p.client, p.store, log)
	colors, candidates := detector.Detect(ctx, imageDescription)
	colorRes := detector.Review(ctx, colors, imageDescription, candidates, p.maxIterations)
	res.DetectedColors = colorRes.Colors
	log(fmt.Sprintf("colors: %v (score %d)", colorRes.Colors, colorRes.Score))

	log("step 3: generating characteristics")
	primaryFields, secondaryFields := splitPrimary(generateFields, classify.ControllingFields(cfg))
	log(fmt.Sprintf("primary fields: %d, secondary fields: %d", len(primaryFields), len(secondaryFields)))

	skipNames := make(map[string]bool, len(cls.Skip))
	for _, f := range cls.Skip {
		skipNames[f.Name] = true
	}

	refiner := NewRefiner(
		generate.NewGenerator(p.client, log),
		generate.NewValidator(p.client, log),
		p.maxIterations,
		log,
	)
	refineInput := RefineInput{
		ImageDescription: imageDescription,
		Allowed:          allowed,
		Limits:           limits,
		DetectedColors:   colorRes.Colors,
		FixedData:        fixedData,
		SubjectName:      product.SubjectName,
		AllFieldNames:    targetNames,
		SkipNames:        skipNames,
		Locked:           locked,
	}

	var primary RefineResult
	if len(primaryFields) > 0 {
		in := refineInput
		in.Fields = primaryFields
		primary = refiner.Run(ctx, in)
		log(fmt.Sprintf("primary generated: %d fields, score %d", len(primary.Characteristics), primary.Score))
	}

	filteredSecondary, removed := classify.FilterSatisfied(secondaryFields, cls.Conditions, primary.Characteristics)
	if len(removed) > 0 {
		log(fmt.Sprintf("removed %d conditional fields: %v", len(removed), removed))
	}

	var secondary RefineResult
	if len(filteredSecondary) > 0 {
		in := refineInput
		in.Fields = filteredSecondary
		secondary = refiner.Run(ctx, in)
		log(fmt.Sprintf("secondary generated: %d fields, score %d", len(secondary.Characteristics), secondary.Score))
	}

	aiChars := append(append([]schema.Characteristic{}, primary.Characteristics...), secondary.Characteristics...)

	switch {
	case len(primaryFields) > 0 && len(filteredSecondary) > 0:
		res.ValidationScore = (primary.Score + secondary.Score) / 2
		res.IterationsDone = primary.Iterations + secondary.Iterations
		res.ValidationIssues = append(append([]string{}, primary.Issues...), secondary.Issues...)
	case len(primaryFields) > 0:
		res.ValidationScore = primary.Score
		res.IterationsDone = primary.Iterations
		res.ValidationIssues = primary.Issues
	case len(filteredSecondary) > 0:
		res.ValidationScore = secondary.Score
		res.IterationsDone = secondary.Iterations
		res.ValidationIssues = secondary.Issues
	}
	log(fmt.Sprintf("characteristics validated: score %d", res.ValidationScore))

	merged := mergeCharacteristics(attrs, cls, fixedData, aiChars, colorRes.Colors)
	res.NewCharacteristics = merged
	res.Stats = buildStats(attrs, cls, generateFields, filteredSecondary, primaryFields,
		len(removed), aiChars, merged)

	log("step 4: writing description")
	writer := generate.NewTextWriter(p.client, log)
	desc := writer.WriteDescription(ctx, merged, product.Title, product.Description, p.maxIterations)
	res.Description = &desc
	res.NewDescription = desc.New
	log(fmt.Sprintf("description: %d characters, score %d", len(desc.New), desc.Score))

	log("step 5: writing title")
	title := writer.WriteTitle(ctx, product.SubjectName, merged, desc.New, product.Title, p.maxIterations)
	res.Title = &title
	res.NewTitle = title.New
	log(fmt.Sprintf("title: %q, score %d", title.New, title.Score))

	res.Status = schema.StatusSuccess
	return res
}

// failure builds an error result, filling AvailableCategoryIDs on a
// missing category config.
func (p *Pipeline) failure(runID, article string, err error) *schema.CardResult {
	res := &schema.CardResult{
		RunID:     runID,
		Status:    schema.StatusError,
		ErrorType: ClassifyError(err),
		Article:   article,
		Message:   err.Error(),
	}

	if res.ErrorType == schema.ErrorTypeConfigMissing {
		available, aerr := p.store.AvailableCategoryIDs()
		if aerr == nil {
			if len(available) > maxReportedCategoryIDs {
				available = available[:maxReportedCategoryIDs]
			}
			res.AvailableCategoryIDs = available
		}
	}
	return res
}

// knownControllingValues reads already-present controlling field values
// off the existing card so conditional attributes can be resolved before
// anything is generated.
func knownControllingValues(cfg *schema.CategoryConfig, chars []schema.Characteristic) map[string]string {
	known := map[string]string{}
	for _, field := range classify.ControllingFields(cfg) {
		if c := schema.FindCharacteristic(chars, field); c != nil {
			if v := c.First(); v != "" {
				known[field] = v
			}
		}
	}
	return known
}

// splitPrimary partitions the generation fields into controlling fields,
// generated first, and everything else.
func splitPrimary(fields []schema.AttributeSchema, controlling []string) (primary, secondary []schema.AttributeSchema) {
	isPrimary := make(map[string]bool, len(controlling))
	for _, n := range controlling {
		isPrimary[n] = true
	}
	for _, f := range fields {
		if isPrimary[f.Name] {
			primary = append(primary, f)
		} else {
			secondary = append(secondary, f)
		}
	}
	return primary, secondary
}

// mergeCharacteristics assembles the final characteristic list in schema
// order. Skip fields stay empty, spreadsheet values always win, detected
// colors fill the color field when generation did not, and everything
// else takes the generated value or stays empty. Conditional-fill targets
// whose condition ended up unmet are cleared last.
func mergeCharacteristics(
	attrs []schema.AttributeSchema,
	cls classify.Classification,
	fixedData map[string][]string,
	aiChars []schema.Characteristic,
	colors []string,
) []schema.Characteristic {
	byName := make(map[string]schema.Characteristic, len(aiChars))
	for _, c := range aiChars {
		if c.Name != "" {
			byName[c.Name] = c
		}
	}

	if len(colors) > 0 {
		if _, ok := byName[schema.ColorField]; !ok {
			for _, a := range attrs {
				if a.Name == schema.ColorField {
					byName[schema.ColorField] = schema.Characteristic{
						ID:    a.ID,
						Name:  schema.ColorField,
						Value: colors,
					}
					break
				}
			}
		}
	}

	fixedNames := make(map[string]bool, len(cls.Fixed))
	for _, f := range cls.Fixed {
		fixedNames[f.Name] = true
	}
	skipNames := make(map[string]bool, len(cls.Skip))
	for _, f := range cls.Skip {
		skipNames[f.Name] = true
	}

	full := make([]schema.Characteristic, 0, len(attrs))
	for _, a := range attrs {
		if a.Name == "" {
			continue
		}
		switch {
		case skipNames[a.Name]:
			full = append(full, schema.Characteristic{ID: a.ID, Name: a.Name, Value: []string{}})
		case fixedNames[a.Name] || fixedData[a.Name] != nil:
			full = append(full, schema.Characteristic{
				ID:    a.ID,
				Name:  a.Name,
				Value: append([]string{}, fixedData[a.Name]...),
			})
		default:
			value := []string{}
			if c, ok := byName[a.Name]; ok {
				value = append(value, c.Value...)
			}
			full = append(full, schema.Characteristic{ID: a.ID, Name: a.Name, Value: value})
		}
	}

	return classify.ApplyConditionalFill(full, cls.Conditions)
}

func buildStats(
	attrs []schema.AttributeSchema,
	cls classify.Classification,
	generateFields, filteredSecondary, primaryFields []schema.AttributeSchema,
	removed int,
	aiChars, merged []schema.Characteristic,
) schema.FieldStats {
	requiredFields := 0
	requiredByName := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		if a.Required {
			requiredFields++
			requiredByName[a.Name] = true
		}
	}

	fixedNames := make(map[string]bool, len(cls.Fixed))
	for _, f := range cls.Fixed {
		fixedNames[f.Name] = true
	}

	requiredFilled, fixedFilled, totalFilled := 0, 0, 0
	for _, c := range merged {
		if c.Empty() {
			continue
		}
		totalFilled++
		if requiredByName[c.Name] {
			requiredFilled++
		}
		if fixedNames[c.Name] {
			fixedFilled++
		}
	}

	targetFilled := 0
	for _, c := range aiChars {
		if !c.Empty() {
			targetFilled++
		}
	}

	return schema.FieldStats{
		FixedFields:              len(cls.Fixed),
		ConditionalSkip:          len(cls.Skip),
		ConditionalFill:          len(cls.Conditions),
		GeneratedFields:          len(generateFields),
		PrimaryFieldsGenerated:   len(primaryFields),
		SecondaryFieldsGenerated: len(filteredSecondary),
		ConditionalFieldsRemoved: removed,
		TotalFields:              len(attrs),
		RequiredFields:           requiredFields,
		OptionalFields:           len(attrs) - requiredFields,
		RequiredFilled:           requiredFilled,
		RequiredMissing:          requiredFields - requiredFilled,
		TargetFields:             len(generateFields),
		TargetFilled:             targetFilled,
		FixedFilled:              fixedFilled,
		TotalFilled:              totalFilled,
	}
}
