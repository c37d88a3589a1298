/*
Command icqsplitter sorts, corrects and fits comet magnitude observations.

Contents

  Program overview
  Command line usage
  Configuration
  Output files
  Reasons observations are removed
  Fit outline


Program overview

Input is a file of 80 column ICQ format comet magnitude observations, as
distributed by the International Comet Quarterly and the COBS database.
Every line is checked against field standard quality criteria.  Lines that
pass are written to the kept file, lines that fail to the removed file
along with the reason.

With --heliocentric, kept magnitudes are corrected to unit observer
distance, m - 5 log10 delta.  With --phase, they are corrected to zero
phase angle with a phase function table giving, for each whole degree, the
brightness relative to zero degrees.  Both corrections need the comet's
distances and phase angle at each observation time.  These come from JPL
Horizons, queried on a grid of 1 to 60 minutes, or from a CSV file written
earlier by the ephem command.

With --stats, the corrected magnitudes before and after perihelion are
each fit with a polynomial in log10 r while a magnitude offset is solved
for every observer.  Observers whose residuals drift over the apparition
are dropped and the fit is repeated.

Sample run:

  icqsplitter run c1995o1.txt --heliocentric --phase --stats \
      --perihelion 1997/04/01 --target '902014;'


Command line usage

  icqsplitter run [input] [flags]
    -H, --heliocentric    correct for observer distance
    -p, --phase           correct for phase angle
    -s, --stats           fit the light curve and observer offsets
        --plot            plot the light curve
        --ccd             CCD magnitudes only; skip visual method checks
        --perihelion      perihelion date, YYYY/MM/DD
        --target          Horizons target
    -o, --out             output directory

  icqsplitter ephem [--start date --stop date] [-o file]
  icqsplitter history [--archive file] [-n limit]
  icqsplitter version

Global flags are -c, --config for the config file, --log-level and
--log-format.  --stats and --plot need at least one of --heliocentric or
--phase, and --stats needs --perihelion.


Configuration

Settings come from, in increasing priority, defaults, the config file, the
environment and the command line.  The config file is YAML, by default
./icqsplitter.yaml.  Environment variables are the config keys in upper
case with dots as underscores and an ICQSPLIT_ prefix, for example
ICQSPLIT_EPHEMERIS_INCREMENT=15.

  input                 observation file
  name                  object name for the plot title
  perihelion            perihelion date
  target                Horizons COMMAND
  heliocentric, phase, stats, plot, ccd
  phase_table           phase function table file
  catalogs.rejected     reference catalog codes to remove, as tier 3 or 4
  ephemeris.source      horizons or file
  ephemeris.file        ephemeris CSV for source file
  ephemeris.increment   grid minutes, dividing 60 (30)
  ephemeris.max_steps   grid steps per Horizons request (90000)
  ephemeris.timeout     per request timeout (2m)
  ephemeris.rate        Horizons requests per second (1)
  ephemeris.attempts    tries per request (3)
  regression.max_outer  bound on drop-and-refit passes (50)
  regression.alpha      significance level of the drift test (.05)
  regression.parallel   fit both partitions concurrently (true)
  outputs.dir           output directory
  outputs.kept, outputs.removed, outputs.pre, outputs.post
  outputs.workbook      xlsx workbook of all tables
  outputs.report        YAML fit report
  outputs.plot          light curve image (lightcurve.png)
  outputs.archive       SQLite run history
  outputs.metrics       Prometheus textfile
  log.level, log.format, log.output


Output files

keepers.csv and removed.csv carry every input column.  With corrections,
kept observations add the date, r, delta, phase angle and corrected
magnitudes, and with --stats the shifted magnitude mshift.  pre-stats.csv
and post-stats.csv list the points of each fit in decreasing r, with r
negative before perihelion, the corrected magnitudes, mshift and the
residual of mshift from the fitted curve.


Reasons observations are removed

   0  two entries on the same night by the same observer; the largest
      aperture is kept, then method S over M over others
   1  no magnitude reported
   2  reverse binocular method
   3  poor weather reported
   4  catalog listed in catalogs.rejected
   5  telescope on an object brighter than 5.4
   6  binoculars on an object brighter than 1.4
   7  magnitude method other than S, B, M, I or E
   8  bad extinction correction
   9  SC catalog on an object fainter than 8.1
  10  unreadable date
  11  no ephemeris sample at the observation time
  12  phase angle outside the phase function table

Reasons 7 and 9 are not checked with --ccd.


Fit outline

1.  Points are ordered by decreasing r.  A degree 5 polynomial in log10 r
is fit by weighted least squares, solved by singular value decomposition
so that clustered distances still give a solution.

2.  Each observer's mean residual is added to that observer's magnitudes,
and the polynomial is fit again, weighting each point by its observer's
residual standard deviation.  This repeats until no coefficient changes by
1e-4 or more, or 20 times.

3.  Each observer's residuals are split into the earlier and later half
and compared with Welch's t-test.  Observers with a two tailed p below .05
are dropped and the fit restarts from step 1.  The pre and post perihelion
points are fit independently.

-------------
Public domain.
*/
package main
